package store

import (
	"context"

	"github.com/alextreichler/estatehub/internal/apperr"
	"github.com/alextreichler/estatehub/internal/models"
)

const userColumns = `id, full_name, email, password_hash, phone, address, city, state, zip_code, profile_image, role, is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.Phone, &u.Address, &u.City, &u.State, &u.ZipCode, &u.ProfileImage, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(s.queryRow(ctx, s.DB, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.queryRow(ctx, s.DB, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

// CreateUser inserts u. A duplicate email surfaces as a Conflict error.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	u.CreatedAt = s.timestamp()
	id, err := s.insert(ctx, s.DB, `
		INSERT INTO users (full_name, email, password_hash, phone, address, city, state, zip_code, profile_image, role, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.FullName, u.Email, u.PasswordHash, u.Phone, u.Address, u.City, u.State, u.ZipCode, u.ProfileImage, string(u.Role), u.IsActive, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("email", "Email already exists")
		}
		return err
	}
	u.ID = id
	return nil
}

func (s *Store) UpdateUserProfile(ctx context.Context, u *models.User) error {
	now := s.timestamp()
	res, err := s.exec(ctx, s.DB, `
		UPDATE users SET full_name = ?, phone = ?, address = ?, city = ?, state = ?, zip_code = ?, profile_image = ?, updated_at = ?
		WHERE id = ?`,
		u.FullName, u.Phone, u.Address, u.City, u.State, u.ZipCode, u.ProfileImage, now, u.ID)
	if err != nil {
		return err
	}
	u.UpdatedAt = &now
	return expectAffected(res, "user")
}

func (s *Store) UpdateUserPassword(ctx context.Context, id int64, hash string) error {
	res, err := s.exec(ctx, s.DB, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, hash, s.timestamp(), id)
	if err != nil {
		return err
	}
	return expectAffected(res, "user")
}

// ToggleUserActive flips is_active and returns the new value.
func (s *Store) ToggleUserActive(ctx context.Context, id int64) (bool, error) {
	u, err := s.GetUserByID(ctx, id)
	if err != nil {
		return false, err
	}
	active := !u.IsActive
	if _, err := s.exec(ctx, s.DB, `UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`, active, s.timestamp(), id); err != nil {
		return false, err
	}
	return active, nil
}

// ListUsers returns users with the given role, newest first.
func (s *Store) ListUsers(ctx context.Context, role models.Role) ([]models.User, error) {
	rows, err := s.query(ctx, s.DB, `SELECT `+userColumns+` FROM users WHERE role = ? ORDER BY created_at DESC, id DESC`, string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
