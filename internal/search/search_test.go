package search

import (
	"math"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	p := Params{SearchTerm: "  villa ", City: " Pune", Sort: "bogus", Page: -3, PageSize: 500}.Normalize()
	assert.Equal(t, "villa", p.SearchTerm)
	assert.Equal(t, "Pune", p.City)
	assert.Equal(t, SortNewest, p.Sort)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, MaxPageSize, p.PageSize)

	p = Params{PageSize: 0, Page: 3}.Normalize()
	assert.Equal(t, DefaultPageSize, p.PageSize)
	assert.Equal(t, 24, p.Offset())
}

func TestNormalizeHugePage(t *testing.T) {
	q, _ := url.ParseQuery("page=9223372036854775807&pageSize=48")
	p := FromQuery(q).Normalize()
	assert.Equal(t, MaxPage, p.Page)
	assert.Positive(t, p.Offset())

	for _, size := range []int{1, DefaultPageSize, MaxPageSize} {
		p = Params{Page: math.MaxInt, PageSize: size}.Normalize()
		assert.Positive(t, p.Offset(), size)
	}
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 12))
	assert.Equal(t, 1, TotalPages(12, 12))
	assert.Equal(t, 2, TotalPages(13, 12))
	assert.Equal(t, 0, TotalPages(10, 0))
}

func TestFromQuery(t *testing.T) {
	q, _ := url.ParseQuery("searchTerm=sea+view&propertyType=Villa&minPrice=1000&maxPrice=abc&bedrooms=3&sortBy=price_desc&page=2")
	p := FromQuery(q)
	assert.Equal(t, "sea view", p.SearchTerm)
	assert.Equal(t, "Villa", p.PropertyType)
	if assert.NotNil(t, p.MinPrice) {
		assert.Equal(t, 1000.0, *p.MinPrice)
	}
	assert.Nil(t, p.MaxPrice, "malformed numbers are ignored")
	if assert.NotNil(t, p.MinBedrooms) {
		assert.Equal(t, 3, *p.MinBedrooms)
	}
	assert.Equal(t, SortPriceDesc, p.Sort)
	assert.Equal(t, 2, p.Page)
}

func TestQueryRoundTrip(t *testing.T) {
	q, _ := url.ParseQuery("city=Goa&bathrooms=2&sortBy=oldest&page=4")
	p := FromQuery(q).Normalize()
	assert.Equal(t, "bathrooms=2&city=Goa&page=4&sortBy=oldest", p.Query().Encode())
	assert.Equal(t, "bathrooms=2&city=Goa&page=5&sortBy=oldest", p.WithPage(5).Query().Encode())
	assert.Equal(t, "bathrooms=2&city=Goa&sortBy=oldest", p.WithPage(1).Query().Encode())
}

func TestCacheKey(t *testing.T) {
	a := Params{City: "Goa", Sort: SortNewest}
	b := Params{City: " Goa ", Page: 1, PageSize: DefaultPageSize}
	assert.Equal(t, a.CacheKey(), b.CacheKey(), "equivalent requests share a key")

	c := a
	c.Visibility = VisibilityAll
	assert.NotEqual(t, a.CacheKey(), c.CacheKey())
	assert.NotEqual(t, a.CacheKey(), a.WithPage(2).CacheKey())
	assert.Contains(t, a.CacheKey(), "property-search:")
}

func TestResultPaging(t *testing.T) {
	r := &Result{Page: 1, TotalPages: 3}
	assert.False(t, r.HasPrev())
	assert.True(t, r.HasNext())
	r.Page = 3
	assert.True(t, r.HasPrev())
	assert.False(t, r.HasNext())
}
