package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/alextreichler/estatehub/internal/apperr"
	"github.com/alextreichler/estatehub/internal/blob"
	"github.com/alextreichler/estatehub/internal/models"
	"github.com/alextreichler/estatehub/internal/photos"
	"golang.org/x/crypto/bcrypt"
)

const invalidCredentials = "Invalid email or password"

type AccountStore interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	UpdateUserProfile(ctx context.Context, u *models.User) error
	UpdateUserPassword(ctx context.Context, id int64, hash string) error
	ToggleUserActive(ctx context.Context, id int64) (bool, error)
	ListUsers(ctx context.Context, role models.Role) ([]models.User, error)
	GetDashboardStats(ctx context.Context) (*models.DashboardStats, error)
	GetUserDashboardStats(ctx context.Context, userID int64) (*models.UserDashboardStats, error)
}

type LoginInput struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

type RegisterInput struct {
	FullName        string `form:"full_name" validate:"required,max=100"`
	Email           string `form:"email" validate:"required,email,max=254"`
	Password        string `form:"password" validate:"required,min=6,max=72"`
	ConfirmPassword string `form:"confirm_password" validate:"required,eqfield=Password"`
	Phone           string `form:"phone" validate:"omitempty,phone"`
}

type ProfileInput struct {
	FullName string `form:"full_name" validate:"required,max=100"`
	Phone    string `form:"phone" validate:"omitempty,phone"`
	Address  string `form:"address" validate:"max=300"`
	City     string `form:"city" validate:"max=100"`
	State    string `form:"state" validate:"max=100"`
	ZipCode  string `form:"zip_code" validate:"max=20"`
}

type PasswordInput struct {
	CurrentPassword string `form:"current_password" validate:"required"`
	NewPassword     string `form:"new_password" validate:"required,min=6,max=72"`
	ConfirmPassword string `form:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// Accounts is the identity provider: sign-in, registration and profile
// upkeep for users and admins.
type Accounts struct {
	store AccountStore
	blobs blob.Store
	cost  int
}

func NewAccounts(store AccountStore, blobs blob.Store) *Accounts {
	return &Accounts{store: store, blobs: blobs, cost: bcrypt.DefaultCost}
}

// Login returns the active user matching the credentials.
func (s *Accounts) Login(ctx context.Context, in LoginInput) (*models.User, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	u, err := s.store.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Unauthorized(invalidCredentials)
		}
		return nil, err
	}
	if !u.IsActive {
		slog.Warn("Login attempt for inactive account", "user_id", u.ID)
		return nil, apperr.Unauthorized(invalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return nil, apperr.Unauthorized(invalidCredentials)
	}
	slog.Info("Login successful", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// Register creates an active User account. A taken email is a Conflict on
// the email field.
func (s *Accounts) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = normalizeEmail(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	if _, err := s.store.GetUserByEmail(ctx, in.Email); err == nil {
		return nil, apperr.Conflict("email", "Email already exists")
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		FullName:     in.FullName,
		Email:        in.Email,
		PasswordHash: hash,
		Phone:        in.Phone,
		Role:         models.RoleUser,
		IsActive:     true,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	slog.Info("User registered", "user_id", u.ID)
	return u, nil
}

func (s *Accounts) Get(ctx context.Context, id int64) (*models.User, error) {
	return s.store.GetUserByID(ctx, id)
}

// UpdateProfile saves the contact details and, when image is given, replaces
// the profile picture.
func (s *Accounts) UpdateProfile(ctx context.Context, userID int64, in ProfileInput, image *photos.File) (*models.User, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.FullName = in.FullName
	u.Phone = strings.TrimSpace(in.Phone)
	u.Address = strings.TrimSpace(in.Address)
	u.City = strings.TrimSpace(in.City)
	u.State = strings.TrimSpace(in.State)
	u.ZipCode = strings.TrimSpace(in.ZipCode)

	oldImage := u.ProfileImage
	if image != nil && image.Content != nil {
		path, err := s.blobs.Save(ctx, blob.DirUsers, image.Name, image.Content)
		if err != nil {
			if errors.Is(err, blob.ErrUnsupportedFormat) {
				return nil, apperr.ValidationField("profile_image", err.Error())
			}
			return nil, apperr.Storage("failed to store profile image", err)
		}
		u.ProfileImage = path
	}

	if err := s.store.UpdateUserProfile(ctx, u); err != nil {
		if u.ProfileImage != oldImage {
			s.blobs.Delete(ctx, u.ProfileImage)
		}
		return nil, err
	}
	if oldImage != "" && u.ProfileImage != oldImage {
		if _, err := s.blobs.Delete(ctx, oldImage); err != nil {
			slog.Warn("Failed to delete old profile image", "user_id", userID, "path", oldImage, "error", err)
		}
	}
	return u, nil
}

func (s *Accounts) ChangePassword(ctx context.Context, userID int64, in PasswordInput) error {
	if err := validateStruct(&in); err != nil {
		return err
	}
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.CurrentPassword)); err != nil {
		return apperr.ValidationField("current_password", "Current password is incorrect")
	}
	hash, err := s.hash(in.NewPassword)
	if err != nil {
		return err
	}
	return s.store.UpdateUserPassword(ctx, userID, hash)
}

// EnsureAdmin creates an Admin account for email unless one already exists.
// It reports whether an account was created.
func (s *Accounts) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return false, apperr.ValidationField("email", "Admin email and password are required")
	}
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return false, err
	}

	hash, err := s.hash(password)
	if err != nil {
		return false, err
	}
	if name == "" {
		name = "Administrator"
	}
	u := &models.User{
		FullName:     name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return false, err
	}
	slog.Info("Admin account created", "user_id", u.ID, "email", email)
	return true, nil
}

// ToggleActive enables or disables a user account. Admins cannot disable
// themselves.
func (s *Accounts) ToggleActive(ctx context.Context, actorID, userID int64) (bool, error) {
	if actorID == userID {
		return false, apperr.Conflict("", "You cannot deactivate your own account")
	}
	return s.store.ToggleUserActive(ctx, userID)
}

func (s *Accounts) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.store.ListUsers(ctx, models.RoleUser)
}

func (s *Accounts) AdminDashboard(ctx context.Context) (*models.DashboardStats, error) {
	return s.store.GetDashboardStats(ctx)
}

func (s *Accounts) UserDashboard(ctx context.Context, userID int64) (*models.UserDashboardStats, error) {
	return s.store.GetUserDashboardStats(ctx, userID)
}

func (s *Accounts) hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
