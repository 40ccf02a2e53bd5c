package store

import (
	"context"
	"time"

	"github.com/alextreichler/estatehub/internal/models"
)

const recentActivityLimit = 5

// GetDashboardStats gathers the admin dashboard figures. "This month" is
// measured from the first day of the current UTC month.
func (s *Store) GetDashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	now := s.timestamp()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	stats := &models.DashboardStats{
		PropertiesByType: make(map[models.PropertyType]int),
	}

	counters := []struct {
		dst   *int
		query string
		args  []any
	}{
		{&stats.TotalUsers, `SELECT COUNT(*) FROM users WHERE role = ?`, []any{string(models.RoleUser)}},
		{&stats.TotalProperties, `SELECT COUNT(*) FROM properties`, nil},
		{&stats.TotalBookings, `SELECT COUNT(*) FROM bookings`, nil},
		{&stats.TotalInquiries, `SELECT COUNT(*) FROM inquiries`, nil},
		{&stats.PendingBookings, `SELECT COUNT(*) FROM bookings WHERE status = ?`, []any{string(models.BookingPending)}},
		{&stats.NewInquiries, `SELECT COUNT(*) FROM inquiries WHERE status = ?`, []any{string(models.InquiryNew)}},
		{&stats.AvailableProperties, `SELECT COUNT(*) FROM properties WHERE status = ?`, []any{string(models.PropertyAvailable)}},
		{&stats.NewUsersThisMonth, `SELECT COUNT(*) FROM users WHERE created_at >= ?`, []any{monthStart}},
		{&stats.NewPropertiesThisMonth, `SELECT COUNT(*) FROM properties WHERE created_at >= ?`, []any{monthStart}},
		{&stats.NewBookingsThisMonth, `SELECT COUNT(*) FROM bookings WHERE created_at >= ?`, []any{monthStart}},
		{&stats.NewInquiriesThisMonth, `SELECT COUNT(*) FROM inquiries WHERE created_at >= ?`, []any{monthStart}},
		{&stats.FeaturedCount, `SELECT COUNT(*) FROM properties WHERE is_featured = ?`, []any{true}},
		{&stats.TotalViews, `SELECT COALESCE(SUM(view_count), 0) FROM properties`, nil},
		{&stats.ActiveUsers, `SELECT COUNT(*) FROM users WHERE is_active = ?`, []any{true}},
	}
	for _, c := range counters {
		n, err := s.count(ctx, c.query, c.args...)
		if err != nil {
			return nil, err
		}
		*c.dst = n
	}

	for _, t := range models.PropertyTypes {
		stats.PropertiesByType[t] = 0
	}
	rows, err := s.query(ctx, s.DB, `SELECT property_type, COUNT(*) FROM properties GROUP BY property_type`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			t models.PropertyType
			n int
		)
		if err := rows.Scan(&t, &n); err != nil {
			rows.Close()
			return nil, err
		}
		stats.PropertiesByType[t] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	bookingRows, err := s.query(ctx, s.DB, bookingSelect+` ORDER BY b.created_at DESC, b.id DESC LIMIT ?`, recentActivityLimit)
	if err != nil {
		return nil, err
	}
	if stats.RecentBookings, err = collectBookings(bookingRows); err != nil {
		return nil, err
	}

	inquiryRows, err := s.query(ctx, s.DB, inquirySelect+` ORDER BY i.created_at DESC, i.id DESC LIMIT ?`, recentActivityLimit)
	if err != nil {
		return nil, err
	}
	if stats.RecentInquiries, err = collectInquiries(inquiryRows); err != nil {
		return nil, err
	}

	return stats, nil
}

// GetUserDashboardStats gathers a single user's booking and inquiry figures.
func (s *Store) GetUserDashboardStats(ctx context.Context, userID int64) (*models.UserDashboardStats, error) {
	stats := &models.UserDashboardStats{}
	var err error

	if stats.Bookings, err = s.count(ctx, `SELECT COUNT(*) FROM bookings WHERE user_id = ?`, userID); err != nil {
		return nil, err
	}
	if stats.PendingBookings, err = s.count(ctx, `SELECT COUNT(*) FROM bookings WHERE user_id = ? AND status = ?`, userID, string(models.BookingPending)); err != nil {
		return nil, err
	}
	if stats.Inquiries, err = s.count(ctx, `SELECT COUNT(*) FROM inquiries WHERE user_id = ?`, userID); err != nil {
		return nil, err
	}
	if stats.RepliedInquiries, err = s.count(ctx, `SELECT COUNT(*) FROM inquiries WHERE user_id = ? AND status = ?`, userID, string(models.InquiryReplied)); err != nil {
		return nil, err
	}
	if stats.RecentBookings, err = s.ListBookingsByUser(ctx, userID, recentActivityLimit); err != nil {
		return nil, err
	}
	if stats.RecentInquiries, err = s.ListInquiriesByUser(ctx, userID, recentActivityLimit); err != nil {
		return nil, err
	}
	return stats, nil
}

// GetHomeStats returns the landing page counters.
func (s *Store) GetHomeStats(ctx context.Context) (*models.HomeStats, error) {
	stats := &models.HomeStats{}
	var err error
	if stats.TotalProperties, err = s.count(ctx, `SELECT COUNT(*) FROM properties`); err != nil {
		return nil, err
	}
	if stats.TotalUsers, err = s.count(ctx, `SELECT COUNT(*) FROM users WHERE role = ?`, string(models.RoleUser)); err != nil {
		return nil, err
	}
	if stats.FeaturedCount, err = s.count(ctx, `SELECT COUNT(*) FROM properties WHERE is_featured = ?`, true); err != nil {
		return nil, err
	}
	return stats, nil
}
