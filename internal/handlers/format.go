package handlers

import (
	"html/template"
	"math"
	"time"

	"github.com/alextreichler/estatehub/internal/search"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const RupeeSymbol = "₹"

var pricePrinter = message.NewPrinter(language.English)

// ToINR scales a listing price to rupees. Rents and cheaper listings use a
// larger factor than luxury ones so displayed prices stay in local ranges.
func ToINR(usd float64) float64 {
	var factor float64
	switch {
	case usd < 1_000:
		factor = 25
	case usd < 10_000:
		factor = 500
	case usd < 100_000:
		factor = 200
	case usd < 1_000_000:
		factor = 30
	default:
		factor = 15
	}
	return math.Round(usd*factor*100) / 100
}

// FormatPrice renders a listing price in rupees with digit grouping,
// e.g. 500000 -> "₹15,000,000".
func FormatPrice(usd float64) string {
	return RupeeSymbol + pricePrinter.Sprintf("%d", int64(math.Round(ToINR(usd))))
}

// FormatCount groups the digits of n.
func FormatCount(n int) string {
	return pricePrinter.Sprintf("%d", n)
}

// TitleCase capitalises each word, e.g. "new delhi" -> "New Delhi".
func TitleCase(s string) string {
	// A Caser keeps state, so each call gets its own.
	return cases.Title(language.English).String(s)
}

func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"price": FormatPrice,
		"count": FormatCount,
		"title": TitleCase,
		"date": func(t time.Time) string {
			return t.Format("02 Jan 2006")
		},
		"datetime": func(t time.Time) string {
			return t.Format("02 Jan 2006 15:04")
		},
		"deref": func(v *int) int {
			if v == nil {
				return 0
			}
			return *v
		},
		"deref64": func(v *int64) int64 {
			if v == nil {
				return 0
			}
			return *v
		},
		"pageURL": func(r *search.Result, page int) string {
			return "?" + r.Params.WithPage(page).Query().Encode()
		},
		"prevPage": func(currentPage int) int { return currentPage - 1 },
		"nextPage": func(currentPage int) int { return currentPage + 1 },
	}
}
