package store

import (
	"context"
	"strings"

	"github.com/alextreichler/estatehub/internal/models"
	"github.com/alextreichler/estatehub/internal/search"
)

type queryBuilder struct {
	conditions []string
	args       []any
}

func (qb *queryBuilder) addCondition(condition string, args ...any) {
	qb.conditions = append(qb.conditions, condition)
	qb.args = append(qb.args, args...)
}

func (qb *queryBuilder) addFloatRange(column string, min, max *float64) {
	if min != nil {
		qb.addCondition(column+" >= ?", *min)
	}
	if max != nil {
		qb.addCondition(column+" <= ?", *max)
	}
}

// addMinInt matches column >= min. NULL columns never satisfy the bound.
func (qb *queryBuilder) addMinInt(column string, min *int) {
	if min != nil {
		qb.addCondition(column+" IS NOT NULL AND "+column+" >= ?", *min)
	}
}

func (qb *queryBuilder) where() string {
	if len(qb.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(qb.conditions, " AND ")
}

// applyFilters composes the visibility predicate and every filter in p.
func applyFilters(p search.Params) *queryBuilder {
	qb := &queryBuilder{}

	if p.Visibility == search.VisibilityAvailable {
		qb.addCondition("p.status = ?", string(models.PropertyAvailable))
	}

	if p.SearchTerm != "" {
		like := "%" + escapeLike(p.SearchTerm) + "%"
		qb.addCondition(`(p.title LIKE ? ESCAPE '\' OR p.description LIKE ? ESCAPE '\' OR p.address LIKE ? ESCAPE '\' OR p.city LIKE ? ESCAPE '\')`, like, like, like, like)
	}
	if p.PropertyType != "" {
		qb.addCondition("p.property_type = ?", p.PropertyType)
	}
	if p.ListingType != "" {
		qb.addCondition("p.listing_type = ?", p.ListingType)
	}
	if p.City != "" {
		qb.addCondition("p.city = ?", p.City)
	}
	qb.addFloatRange("p.price", p.MinPrice, p.MaxPrice)
	qb.addMinInt("p.bedrooms", p.MinBedrooms)
	qb.addMinInt("p.bathrooms", p.MinBathrooms)

	return qb
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes term match literally inside a LIKE pattern.
func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}

func orderBy(sort search.Sort) string {
	switch sort {
	case search.SortPriceAsc:
		return " ORDER BY p.price ASC, p.id ASC"
	case search.SortPriceDesc:
		return " ORDER BY p.price DESC, p.id DESC"
	case search.SortOldest:
		return " ORDER BY p.created_at ASC, p.id ASC"
	case search.SortPopular:
		return " ORDER BY p.view_count DESC, p.id DESC"
	default:
		return " ORDER BY p.created_at DESC, p.id DESC"
	}
}

// SearchProperties runs the listing pipeline: visibility, filters, count,
// sort, then page. Facets are computed independently of the page.
func (s *Store) SearchProperties(ctx context.Context, params search.Params) (*search.Result, error) {
	p := params.Normalize()
	qb := applyFilters(p)
	where := qb.where()

	total, err := s.count(ctx, `SELECT COUNT(*) FROM properties p`+where, qb.args...)
	if err != nil {
		return nil, err
	}

	var items []models.Property
	// Pages past the end are empty; there is nothing to fetch.
	if p.Offset() < total {
		args := append(append([]any{}, qb.args...), p.PageSize, p.Offset())
		rows, err := s.query(ctx, s.DB, `SELECT `+propertyColumns+propertyFrom+where+orderBy(p.Sort)+` LIMIT ? OFFSET ?`, args...)
		if err != nil {
			return nil, err
		}
		if items, err = collectProperties(rows); err != nil {
			return nil, err
		}
	}

	facets, err := s.SearchFacets(ctx)
	if err != nil {
		return nil, err
	}

	return &search.Result{
		Items:      items,
		TotalCount: total,
		TotalPages: search.TotalPages(total, p.PageSize),
		Page:       p.Page,
		PageSize:   p.PageSize,
		Facets:     *facets,
		Params:     p,
	}, nil
}

// SearchFacets lists the dropdown values. Cities come from Available
// listings only; property and listing types span every listing.
func (s *Store) SearchFacets(ctx context.Context) (*search.Facets, error) {
	var (
		f   search.Facets
		err error
	)
	if f.Cities, err = s.distinct(ctx, `SELECT DISTINCT city FROM properties WHERE status = ? ORDER BY city`, string(models.PropertyAvailable)); err != nil {
		return nil, err
	}
	if f.PropertyTypes, err = s.distinct(ctx, `SELECT DISTINCT property_type FROM properties ORDER BY property_type`); err != nil {
		return nil, err
	}
	if f.ListingTypes, err = s.distinct(ctx, `SELECT DISTINCT listing_type FROM properties ORDER BY listing_type`); err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *Store) distinct(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.query(ctx, s.DB, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
