package store

import (
	"context"
	"database/sql"

	"github.com/alextreichler/estatehub/internal/models"
)

// ActiveCities returns active cities, largest property count first.
func (s *Store) ActiveCities(ctx context.Context) ([]models.City, error) {
	rows, err := s.query(ctx, s.DB, `SELECT id, name, state, image, property_count, is_active, created_at
		FROM cities WHERE is_active = ? ORDER BY property_count DESC, name ASC`, true)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cities []models.City
	for rows.Next() {
		var c models.City
		if err := rows.Scan(&c.ID, &c.Name, &c.State, &c.Image, &c.PropertyCount, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, err
		}
		cities = append(cities, c)
	}
	return cities, rows.Err()
}

// UpsertCity adds a city or refreshes its state and image.
func (s *Store) UpsertCity(ctx context.Context, c *models.City) error {
	_, err := s.exec(ctx, s.DB, `
		INSERT INTO cities (name, state, image, property_count, is_active, created_at)
		VALUES (?, ?, ?, 0, ?, ?)
		ON CONFLICT (name) DO UPDATE SET state = excluded.state, image = excluded.image, is_active = excluded.is_active`,
		c.Name, c.State, c.Image, c.IsActive, s.timestamp())
	return err
}

// RefreshCityCounts recomputes the cached property_count of every city from
// the Available listings. City counts are display-only.
func (s *Store) RefreshCityCounts(ctx context.Context) (int64, error) {
	var updated int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := s.exec(ctx, tx, `
			UPDATE cities SET property_count = (
				SELECT COUNT(*) FROM properties p WHERE p.city = cities.name AND p.status = ?
			)`, string(models.PropertyAvailable))
		if err != nil {
			return err
		}
		updated, err = res.RowsAffected()
		return err
	})
	return updated, err
}
