package store

import (
	"context"
	"database/sql"

	"github.com/alextreichler/estatehub/internal/models"
)

const propertyColumns = `p.id, p.title, p.description, p.property_type, p.listing_type, p.price, p.address, p.city, p.state, p.zip_code,
	p.bedrooms, p.bathrooms, p.square_feet, p.year_built, p.parking, p.features, p.main_image, p.additional_images,
	p.status, p.is_featured, p.view_count, p.owner_id, COALESCE(u.full_name, '') AS owner_name, p.created_at, p.updated_at`

const propertyFrom = ` FROM properties p LEFT JOIN users u ON u.id = p.owner_id`

func scanProperty(row rowScanner) (*models.Property, error) {
	var (
		p                   models.Property
		bedrooms, bathrooms sql.NullInt64
		yearBuilt           sql.NullInt64
		squareFeet          sql.NullFloat64
	)
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.PropertyType, &p.ListingType, &p.Price, &p.Address, &p.City, &p.State, &p.ZipCode,
		&bedrooms, &bathrooms, &squareFeet, &yearBuilt, &p.Parking, &p.Features, &p.MainImage, &p.AdditionalImages,
		&p.Status, &p.IsFeatured, &p.ViewCount, &p.OwnerID, &p.OwnerName, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Bedrooms = intPtr(bedrooms)
	p.Bathrooms = intPtr(bathrooms)
	p.YearBuilt = intPtr(yearBuilt)
	if squareFeet.Valid {
		v := squareFeet.Float64
		p.SquareFeet = &v
	}
	return &p, nil
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func collectProperties(rows *sql.Rows) ([]models.Property, error) {
	defer rows.Close()
	var props []models.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		props = append(props, *p)
	}
	return props, rows.Err()
}

func (s *Store) CreateProperty(ctx context.Context, p *models.Property) error {
	if err := p.AdditionalImages.Validate(); err != nil {
		return err
	}
	if p.MainImage == "" {
		p.MainImage = models.DefaultPropertyImage
	}
	if p.Status == "" {
		p.Status = models.PropertyAvailable
	}
	p.CreatedAt = s.timestamp()
	id, err := s.insert(ctx, s.DB, `
		INSERT INTO properties (title, description, property_type, listing_type, price, address, city, state, zip_code,
			bedrooms, bathrooms, square_feet, year_built, parking, features, main_image, additional_images,
			status, is_featured, view_count, owner_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		p.Title, p.Description, string(p.PropertyType), string(p.ListingType), p.Price, p.Address, p.City, p.State, p.ZipCode,
		nullInt(p.Bedrooms), nullInt(p.Bathrooms), nullFloat(p.SquareFeet), nullInt(p.YearBuilt), p.Parking, p.Features,
		p.MainImage, p.AdditionalImages.String(), string(p.Status), p.IsFeatured, p.OwnerID, p.CreatedAt)
	if err != nil {
		return err
	}
	p.ID = id
	p.ViewCount = 0
	return nil
}

func (s *Store) GetPropertyByID(ctx context.Context, id int64) (*models.Property, error) {
	p, err := scanProperty(s.queryRow(ctx, s.DB, `SELECT `+propertyColumns+propertyFrom+` WHERE p.id = ?`, id))
	if err != nil {
		return nil, notFound(err, "property")
	}
	return p, nil
}

// UpdateProperty saves the editable listing fields. Images, view count and
// ownership are left alone.
func (s *Store) UpdateProperty(ctx context.Context, p *models.Property) error {
	now := s.timestamp()
	res, err := s.exec(ctx, s.DB, `
		UPDATE properties
		SET title = ?, description = ?, property_type = ?, listing_type = ?, price = ?, address = ?, city = ?, state = ?, zip_code = ?,
			bedrooms = ?, bathrooms = ?, square_feet = ?, year_built = ?, parking = ?, features = ?, status = ?, is_featured = ?, updated_at = ?
		WHERE id = ?`,
		p.Title, p.Description, string(p.PropertyType), string(p.ListingType), p.Price, p.Address, p.City, p.State, p.ZipCode,
		nullInt(p.Bedrooms), nullInt(p.Bathrooms), nullFloat(p.SquareFeet), nullInt(p.YearBuilt), p.Parking, p.Features,
		string(p.Status), p.IsFeatured, now, p.ID)
	if err != nil {
		return err
	}
	p.UpdatedAt = &now
	return expectAffected(res, "property")
}

// UpdatePropertyImages persists the main image, the additional image list
// and UpdatedAt as set on p.
func (s *Store) UpdatePropertyImages(ctx context.Context, p *models.Property) error {
	if err := p.AdditionalImages.Validate(); err != nil {
		return err
	}
	updatedAt := s.timestamp()
	if p.UpdatedAt != nil {
		updatedAt = p.UpdatedAt.UTC()
	}
	res, err := s.exec(ctx, s.DB, `UPDATE properties SET main_image = ?, additional_images = ?, updated_at = ? WHERE id = ?`,
		p.MainImage, p.AdditionalImages.String(), updatedAt, p.ID)
	if err != nil {
		return err
	}
	return expectAffected(res, "property")
}

func (s *Store) UpdatePropertyStatus(ctx context.Context, id int64, status models.PropertyStatus) error {
	res, err := s.exec(ctx, s.DB, `UPDATE properties SET status = ?, updated_at = ? WHERE id = ?`, string(status), s.timestamp(), id)
	if err != nil {
		return err
	}
	return expectAffected(res, "property")
}

// ToggleFeatured flips is_featured and returns the new value.
func (s *Store) ToggleFeatured(ctx context.Context, id int64) (bool, error) {
	var featured bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.queryRow(ctx, tx, `SELECT is_featured FROM properties WHERE id = ?`, id).Scan(&featured); err != nil {
			return notFound(err, "property")
		}
		featured = !featured
		_, err := s.exec(ctx, tx, `UPDATE properties SET is_featured = ?, updated_at = ? WHERE id = ?`, featured, s.timestamp(), id)
		return err
	})
	return featured, err
}

// IncrementViewCount bumps the counter in a single statement.
func (s *Store) IncrementViewCount(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, s.DB, `UPDATE properties SET view_count = view_count + 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectAffected(res, "property")
}

// DeleteProperty removes the property record together with its bookings and
// detaches its inquiries, in one transaction. Blob cleanup is the caller's job.
func (s *Store) DeleteProperty(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.exec(ctx, tx, `DELETE FROM bookings WHERE property_id = ?`, id); err != nil {
			return err
		}
		if _, err := s.exec(ctx, tx, `UPDATE inquiries SET property_id = NULL WHERE property_id = ?`, id); err != nil {
			return err
		}
		res, err := s.exec(ctx, tx, `DELETE FROM properties WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return expectAffected(res, "property")
	})
}

// FeaturedProperties returns the most viewed featured Available listings.
func (s *Store) FeaturedProperties(ctx context.Context, limit int) ([]models.Property, error) {
	rows, err := s.query(ctx, s.DB, `SELECT `+propertyColumns+propertyFrom+`
		WHERE p.is_featured = ? AND p.status = ?
		ORDER BY p.view_count DESC, p.id DESC LIMIT ?`, true, string(models.PropertyAvailable), limit)
	if err != nil {
		return nil, err
	}
	return collectProperties(rows)
}

// LatestProperties returns Available listings, newest first.
func (s *Store) LatestProperties(ctx context.Context, limit int) ([]models.Property, error) {
	rows, err := s.query(ctx, s.DB, `SELECT `+propertyColumns+propertyFrom+`
		WHERE p.status = ?
		ORDER BY p.created_at DESC, p.id DESC LIMIT ?`, string(models.PropertyAvailable), limit)
	if err != nil {
		return nil, err
	}
	return collectProperties(rows)
}
