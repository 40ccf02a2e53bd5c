package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/alextreichler/estatehub/internal/apperr"
	"github.com/alextreichler/estatehub/internal/models"
	"github.com/alextreichler/estatehub/internal/notify"
)

type InquiryStore interface {
	GetPropertyByID(ctx context.Context, id int64) (*models.Property, error)
	CreateInquiry(ctx context.Context, in *models.Inquiry) error
	GetInquiryByID(ctx context.Context, id int64) (*models.Inquiry, error)
	ReplyInquiry(ctx context.Context, id int64, reply string, at time.Time) (bool, error)
	ListInquiries(ctx context.Context) ([]models.Inquiry, error)
	ListInquiriesByUser(ctx context.Context, userID int64, limit int) ([]models.Inquiry, error)
	ListInquiriesByProperty(ctx context.Context, propertyID int64) ([]models.Inquiry, error)
}

type InquiryInput struct {
	Name    string `form:"name" validate:"required,max=100"`
	Email   string `form:"email" validate:"required,email,max=254"`
	Phone   string `form:"phone" validate:"omitempty,phone"`
	Message string `form:"message" validate:"required,max=2000"`
}

type ReplyInput struct {
	Reply string `form:"reply" validate:"required,max=4000"`
}

type Inquiries struct {
	store  InquiryStore
	mailer notify.Mailer
	now    func() time.Time
}

func NewInquiries(store InquiryStore, mailer notify.Mailer) *Inquiries {
	if mailer == nil {
		mailer = notify.LogMailer{}
	}
	return &Inquiries{store: store, mailer: mailer, now: time.Now}
}

// Submit records an inquiry. propertyID is nil for the general contact form
// and userID is nil for anonymous visitors.
func (s *Inquiries) Submit(ctx context.Context, propertyID, userID *int64, in InquiryInput) (*models.Inquiry, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Message = strings.TrimSpace(in.Message)
	if err := validateStruct(&in); err != nil {
		return nil, err
	}

	inquiry := &models.Inquiry{
		PropertyID: propertyID,
		UserID:     userID,
		Name:       in.Name,
		Email:      in.Email,
		Phone:      in.Phone,
		Message:    in.Message,
	}
	if propertyID != nil {
		p, err := s.store.GetPropertyByID(ctx, *propertyID)
		if err != nil {
			return nil, err
		}
		inquiry.PropertyTitle = p.Title
	}
	if err := s.store.CreateInquiry(ctx, inquiry); err != nil {
		return nil, err
	}
	slog.Info("Inquiry received", "inquiry_id", inquiry.ID, "property_id", propertyID)
	return inquiry, nil
}

// Reply answers a New inquiry and e-mails the reply to the inquirer,
// best-effort. An inquiry can be answered once.
func (s *Inquiries) Reply(ctx context.Context, id int64, in ReplyInput) (*models.Inquiry, error) {
	in.Reply = strings.TrimSpace(in.Reply)
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	inquiry, err := s.store.GetInquiryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !inquiry.Status.CanReply() {
		return nil, apperr.Conflict("reply", "Inquiry has already been replied to")
	}

	at := s.now().UTC()
	ok, err := s.store.ReplyInquiry(ctx, id, in.Reply, at)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("reply", "Inquiry has already been replied to")
	}
	inquiry.Status = models.InquiryReplied
	inquiry.AdminReply = in.Reply
	inquiry.RepliedAt = &at

	if err := s.mailer.InquiryReplied(ctx, inquiry); err != nil {
		slog.Warn("Failed to e-mail inquiry reply", "inquiry_id", id, "error", err)
	}
	return inquiry, nil
}

func (s *Inquiries) List(ctx context.Context) ([]models.Inquiry, error) {
	return s.store.ListInquiries(ctx)
}

func (s *Inquiries) ListByUser(ctx context.Context, userID int64) ([]models.Inquiry, error) {
	return s.store.ListInquiriesByUser(ctx, userID, 0)
}

func (s *Inquiries) ListByProperty(ctx context.Context, propertyID int64) ([]models.Inquiry, error) {
	return s.store.ListInquiriesByProperty(ctx, propertyID)
}
