package store

import (
	"context"
	"database/sql"

	"github.com/alextreichler/estatehub/internal/models"
)

const bookingSelect = `SELECT b.id, b.property_id, COALESCE(p.title, ''), b.user_id, COALESCE(u.full_name, ''), COALESCE(u.email, ''),
	b.booking_date, b.booking_time, b.message, b.status, b.admin_notes, b.created_at, b.updated_at
	FROM bookings b
	LEFT JOIN properties p ON p.id = b.property_id
	LEFT JOIN users u ON u.id = b.user_id`

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	if err := row.Scan(&b.ID, &b.PropertyID, &b.PropertyTitle, &b.UserID, &b.UserName, &b.UserEmail,
		&b.BookingDate, &b.BookingTime, &b.Message, &b.Status, &b.AdminNotes, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBookings(rows *sql.Rows) ([]models.Booking, error) {
	defer rows.Close()
	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// CreateBooking inserts b as a new Pending request.
func (s *Store) CreateBooking(ctx context.Context, b *models.Booking) error {
	b.Status = models.BookingPending
	b.CreatedAt = s.timestamp()
	id, err := s.insert(ctx, s.DB, `
		INSERT INTO bookings (property_id, user_id, booking_date, booking_time, message, status, admin_notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, '', ?)`,
		b.PropertyID, b.UserID, b.BookingDate.UTC(), b.BookingTime, b.Message, string(b.Status), b.CreatedAt)
	if err != nil {
		return err
	}
	b.ID = id
	return nil
}

func (s *Store) GetBookingByID(ctx context.Context, id int64) (*models.Booking, error) {
	b, err := scanBooking(s.queryRow(ctx, s.DB, bookingSelect+` WHERE b.id = ?`, id))
	if err != nil {
		return nil, notFound(err, "booking")
	}
	return b, nil
}

// UpdateBookingStatus writes status and admin notes. Transition rules are
// enforced by the caller.
func (s *Store) UpdateBookingStatus(ctx context.Context, id int64, status models.BookingStatus, adminNotes string) error {
	res, err := s.exec(ctx, s.DB, `UPDATE bookings SET status = ?, admin_notes = ?, updated_at = ? WHERE id = ?`,
		string(status), adminNotes, s.timestamp(), id)
	if err != nil {
		return err
	}
	return expectAffected(res, "booking")
}

// CancelBooking moves a booking owned by userID from one of the given states
// to Cancelled. It reports whether a row changed.
func (s *Store) CancelBooking(ctx context.Context, id, userID int64, from models.BookingStatus) (bool, error) {
	res, err := s.exec(ctx, s.DB, `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND user_id = ? AND status = ?`,
		string(models.BookingCancelled), s.timestamp(), id, userID, string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Store) DeleteBooking(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, s.DB, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectAffected(res, "booking")
}

// ListBookings returns every booking, newest first.
func (s *Store) ListBookings(ctx context.Context) ([]models.Booking, error) {
	rows, err := s.query(ctx, s.DB, bookingSelect+` ORDER BY b.created_at DESC, b.id DESC`)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// ListBookingsByUser returns a user's bookings, newest first. limit <= 0 means all.
func (s *Store) ListBookingsByUser(ctx context.Context, userID int64, limit int) ([]models.Booking, error) {
	query := bookingSelect + ` WHERE b.user_id = ? ORDER BY b.created_at DESC, b.id DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.query(ctx, s.DB, query, args...)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (s *Store) CountBookingsByProperty(ctx context.Context, propertyID int64) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM bookings WHERE property_id = ?`, propertyID)
}
