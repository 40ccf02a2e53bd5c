package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alextreichler/estatehub/internal/apperr"
	"github.com/alextreichler/estatehub/internal/models"
	"github.com/alextreichler/estatehub/internal/notify"
)

type BookingStore interface {
	GetPropertyByID(ctx context.Context, id int64) (*models.Property, error)
	CreateBooking(ctx context.Context, b *models.Booking) error
	GetBookingByID(ctx context.Context, id int64) (*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, status models.BookingStatus, adminNotes string) error
	CancelBooking(ctx context.Context, id, userID int64, from models.BookingStatus) (bool, error)
	DeleteBooking(ctx context.Context, id int64) error
	ListBookings(ctx context.Context) ([]models.Booking, error)
	ListBookingsByUser(ctx context.Context, userID int64, limit int) ([]models.Booking, error)
}

// BookingInput is a viewing request for a property.
type BookingInput struct {
	PropertyID  int64  `form:"property_id" validate:"required,gt=0"`
	BookingDate string `form:"booking_date" validate:"required,datetime=2006-01-02"`
	BookingTime string `form:"booking_time" validate:"required,max=50"`
	Message     string `form:"message" validate:"max=1000"`
}

type Bookings struct {
	store  BookingStore
	mailer notify.Mailer
	now    func() time.Time
}

func NewBookings(store BookingStore, mailer notify.Mailer) *Bookings {
	if mailer == nil {
		mailer = notify.LogMailer{}
	}
	return &Bookings{store: store, mailer: mailer, now: time.Now}
}

// Book creates a Pending viewing request by userID for an Available property.
func (s *Bookings) Book(ctx context.Context, userID int64, in BookingInput) (*models.Booking, error) {
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	date, err := time.Parse(time.DateOnly, in.BookingDate)
	if err != nil {
		return nil, apperr.ValidationField("booking_date", "Invalid booking date")
	}
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if date.Before(today) {
		return nil, apperr.ValidationField("booking_date", "Booking date cannot be in the past")
	}

	p, err := s.store.GetPropertyByID(ctx, in.PropertyID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PropertyAvailable {
		return nil, apperr.Conflict("property_id", "Property is not available for booking")
	}

	b := &models.Booking{
		PropertyID:    p.ID,
		PropertyTitle: p.Title,
		UserID:        userID,
		BookingDate:   date,
		BookingTime:   strings.TrimSpace(in.BookingTime),
		Message:       strings.TrimSpace(in.Message),
	}
	if err := s.store.CreateBooking(ctx, b); err != nil {
		return nil, err
	}
	slog.Info("Booking created", "booking_id", b.ID, "property_id", p.ID, "user_id", userID)
	return b, nil
}

// CancelByOwner cancels userID's own booking. Only Pending bookings can be
// withdrawn by their owner; another user's booking is reported as not found.
func (s *Bookings) CancelByOwner(ctx context.Context, id, userID int64) error {
	b, err := s.store.GetBookingByID(ctx, id)
	if err != nil {
		return err
	}
	if b.UserID != userID {
		return apperr.NotFound("booking")
	}
	if !b.Status.OwnerCancellable() {
		return apperr.Conflict("status", fmt.Sprintf("A %s booking can no longer be cancelled", strings.ToLower(string(b.Status))))
	}
	changed, err := s.store.CancelBooking(ctx, id, userID, models.BookingPending)
	if err != nil {
		return err
	}
	if !changed {
		return apperr.Conflict("status", "Booking status changed, please reload")
	}
	slog.Info("Booking cancelled by owner", "booking_id", id, "user_id", userID)
	return nil
}

// UpdateStatus applies an admin decision. Moving to the same status only
// updates the notes. The booker is notified of status changes, best-effort.
func (s *Bookings) UpdateStatus(ctx context.Context, id int64, status models.BookingStatus, notes string) (*models.Booking, error) {
	if !status.Valid() {
		return nil, apperr.ValidationField("status", "Invalid status")
	}
	b, err := s.store.GetBookingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	changed := b.Status != status
	if changed && !b.Status.CanTransition(status) {
		return nil, apperr.Conflict("status", fmt.Sprintf("Cannot change booking from %s to %s", b.Status, status))
	}

	notes = strings.TrimSpace(notes)
	if err := s.store.UpdateBookingStatus(ctx, id, status, notes); err != nil {
		return nil, err
	}
	b.Status = status
	b.AdminNotes = notes

	if changed {
		slog.Info("Booking status updated", "booking_id", id, "status", status)
		if err := s.mailer.BookingStatusChanged(ctx, b); err != nil {
			slog.Warn("Failed to notify booker", "booking_id", id, "error", err)
		}
	}
	return b, nil
}

func (s *Bookings) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteBooking(ctx, id)
}

func (s *Bookings) List(ctx context.Context) ([]models.Booking, error) {
	return s.store.ListBookings(ctx)
}

func (s *Bookings) ListByUser(ctx context.Context, userID int64) ([]models.Booking, error) {
	return s.store.ListBookingsByUser(ctx, userID, 0)
}
