package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/alextreichler/estatehub/internal/models"
)

const inquirySelect = `SELECT i.id, i.property_id, COALESCE(p.title, ''), i.user_id, i.name, i.email, i.phone, i.message,
	i.status, i.admin_reply, i.replied_at, i.created_at
	FROM inquiries i
	LEFT JOIN properties p ON p.id = i.property_id`

func scanInquiry(row rowScanner) (*models.Inquiry, error) {
	var (
		in                 models.Inquiry
		propertyID, userID sql.NullInt64
	)
	if err := row.Scan(&in.ID, &propertyID, &in.PropertyTitle, &userID, &in.Name, &in.Email, &in.Phone, &in.Message,
		&in.Status, &in.AdminReply, &in.RepliedAt, &in.CreatedAt); err != nil {
		return nil, err
	}
	if propertyID.Valid {
		in.PropertyID = &propertyID.Int64
	}
	if userID.Valid {
		in.UserID = &userID.Int64
	}
	return &in, nil
}

func collectInquiries(rows *sql.Rows) ([]models.Inquiry, error) {
	defer rows.Close()
	var inquiries []models.Inquiry
	for rows.Next() {
		in, err := scanInquiry(rows)
		if err != nil {
			return nil, err
		}
		inquiries = append(inquiries, *in)
	}
	return inquiries, rows.Err()
}

// CreateInquiry inserts in with status New.
func (s *Store) CreateInquiry(ctx context.Context, in *models.Inquiry) error {
	in.Status = models.InquiryNew
	in.CreatedAt = s.timestamp()
	id, err := s.insert(ctx, s.DB, `
		INSERT INTO inquiries (property_id, user_id, name, email, phone, message, status, admin_reply, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, '', ?)`,
		nullInt64(in.PropertyID), nullInt64(in.UserID), in.Name, in.Email, in.Phone, in.Message, string(in.Status), in.CreatedAt)
	if err != nil {
		return err
	}
	in.ID = id
	return nil
}

func (s *Store) GetInquiryByID(ctx context.Context, id int64) (*models.Inquiry, error) {
	in, err := scanInquiry(s.queryRow(ctx, s.DB, inquirySelect+` WHERE i.id = ?`, id))
	if err != nil {
		return nil, notFound(err, "inquiry")
	}
	return in, nil
}

// ReplyInquiry stores the admin reply and marks the inquiry Replied, but only
// while it is still New. It reports whether a row changed.
func (s *Store) ReplyInquiry(ctx context.Context, id int64, reply string, at time.Time) (bool, error) {
	res, err := s.exec(ctx, s.DB, `UPDATE inquiries SET admin_reply = ?, status = ?, replied_at = ? WHERE id = ? AND status = ?`,
		reply, string(models.InquiryReplied), at.UTC(), id, string(models.InquiryNew))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListInquiries returns every inquiry, newest first.
func (s *Store) ListInquiries(ctx context.Context) ([]models.Inquiry, error) {
	rows, err := s.query(ctx, s.DB, inquirySelect+` ORDER BY i.created_at DESC, i.id DESC`)
	if err != nil {
		return nil, err
	}
	return collectInquiries(rows)
}

// ListInquiriesByUser returns a user's inquiries, newest first. limit <= 0 means all.
func (s *Store) ListInquiriesByUser(ctx context.Context, userID int64, limit int) ([]models.Inquiry, error) {
	query := inquirySelect + ` WHERE i.user_id = ? ORDER BY i.created_at DESC, i.id DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.query(ctx, s.DB, query, args...)
	if err != nil {
		return nil, err
	}
	return collectInquiries(rows)
}

func (s *Store) ListInquiriesByProperty(ctx context.Context, propertyID int64) ([]models.Inquiry, error) {
	rows, err := s.query(ctx, s.DB, inquirySelect+` WHERE i.property_id = ? ORDER BY i.created_at DESC, i.id DESC`, propertyID)
	if err != nil {
		return nil, err
	}
	return collectInquiries(rows)
}
