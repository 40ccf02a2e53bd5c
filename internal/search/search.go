// Package search normalises property search requests and carries their results.
package search

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/alextreichler/estatehub/internal/models"
)

const (
	DefaultPageSize = 12
	MaxPageSize     = 48
	// MaxPage keeps (Page-1)*PageSize within int for every allowed page size.
	MaxPage = math.MaxInt / MaxPageSize
)

// Visibility is the base predicate applied before any filter.
type Visibility int

const (
	// VisibilityAvailable restricts results to Available listings (public pages).
	VisibilityAvailable Visibility = iota
	// VisibilityAll applies no status restriction (admin views).
	VisibilityAll
)

type Sort string

const (
	SortNewest    Sort = "newest"
	SortOldest    Sort = "oldest"
	SortPriceAsc  Sort = "price_asc"
	SortPriceDesc Sort = "price_desc"
	SortPopular   Sort = "popular"
)

// ParseSort maps a sort key to a Sort. Unknown keys fall back to newest.
func ParseSort(s string) Sort {
	switch Sort(s) {
	case SortOldest, SortPriceAsc, SortPriceDesc, SortPopular:
		return Sort(s)
	}
	return SortNewest
}

type Params struct {
	SearchTerm   string
	PropertyType string
	ListingType  string
	City         string
	MinPrice     *float64
	MaxPrice     *float64
	MinBedrooms  *int
	MinBathrooms *int
	Sort         Sort
	Page         int
	PageSize     int
	Visibility   Visibility
}

// Normalize trims the text filters and coerces sort, page and page size
// into their valid ranges.
func (p Params) Normalize() Params {
	p.SearchTerm = strings.TrimSpace(p.SearchTerm)
	p.PropertyType = strings.TrimSpace(p.PropertyType)
	p.ListingType = strings.TrimSpace(p.ListingType)
	p.City = strings.TrimSpace(p.City)
	p.Sort = ParseSort(string(p.Sort))
	switch {
	case p.Page <= 0:
		p.Page = 1
	case p.Page > MaxPage:
		p.Page = MaxPage
	}
	switch {
	case p.PageSize <= 0:
		p.PageSize = DefaultPageSize
	case p.PageSize > MaxPageSize:
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset is the number of rows skipped for p's page. p must be normalised.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// TotalPages is ceil(total / pageSize).
func TotalPages(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// FromQuery reads search parameters from a listing URL query string.
// Malformed numbers are treated as absent.
func FromQuery(q url.Values) Params {
	p := Params{
		SearchTerm:   q.Get("searchTerm"),
		PropertyType: q.Get("propertyType"),
		ListingType:  q.Get("listingType"),
		City:         q.Get("city"),
		MinPrice:     parseFloat(q.Get("minPrice")),
		MaxPrice:     parseFloat(q.Get("maxPrice")),
		MinBedrooms:  parseInt(q.Get("bedrooms")),
		MinBathrooms: parseInt(q.Get("bathrooms")),
		Sort:         Sort(q.Get("sortBy")),
	}
	if v := parseInt(q.Get("page")); v != nil {
		p.Page = *v
	}
	if v := parseInt(q.Get("pageSize")); v != nil {
		p.PageSize = *v
	}
	return p
}

// Query encodes p back into listing query parameters, omitting defaults.
// Templates use it to build pagination links.
func (p Params) Query() url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("searchTerm", p.SearchTerm)
	set("propertyType", p.PropertyType)
	set("listingType", p.ListingType)
	set("city", p.City)
	if p.MinPrice != nil {
		q.Set("minPrice", strconv.FormatFloat(*p.MinPrice, 'f', -1, 64))
	}
	if p.MaxPrice != nil {
		q.Set("maxPrice", strconv.FormatFloat(*p.MaxPrice, 'f', -1, 64))
	}
	if p.MinBedrooms != nil {
		q.Set("bedrooms", strconv.Itoa(*p.MinBedrooms))
	}
	if p.MinBathrooms != nil {
		q.Set("bathrooms", strconv.Itoa(*p.MinBathrooms))
	}
	if p.Sort != "" && p.Sort != SortNewest {
		q.Set("sortBy", string(p.Sort))
	}
	if p.PageSize != 0 && p.PageSize != DefaultPageSize {
		q.Set("pageSize", strconv.Itoa(p.PageSize))
	}
	if p.Page > 1 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	return q
}

// WithPage returns a copy of p pointing at page.
func (p Params) WithPage(page int) Params {
	p.Page = page
	return p
}

// CacheKey identifies the normalised request for result caching.
func (p Params) CacheKey() string {
	n := p.Normalize()
	q := n.Query()
	q.Set("page", strconv.Itoa(n.Page))
	q.Set("visibility", strconv.Itoa(int(n.Visibility)))
	// url.Values.Encode sorts by key, which keeps the key stable.
	sum := sha256.Sum256([]byte(q.Encode()))
	return "property-search:" + hex.EncodeToString(sum[:])
}

// Facets are the distinct values offered by the listing filter dropdowns.
type Facets struct {
	Cities        []string `json:"cities"`
	PropertyTypes []string `json:"property_types"`
	ListingTypes  []string `json:"listing_types"`
}

type Result struct {
	Items      []models.Property `json:"items"`
	TotalCount int               `json:"total_count"`
	TotalPages int               `json:"total_pages"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	Facets     Facets            `json:"facets"`
	Params     Params            `json:"-"`
}

func (r *Result) HasPrev() bool { return r.Page > 1 }

func (r *Result) HasNext() bool { return r.Page < r.TotalPages }

func parseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}
