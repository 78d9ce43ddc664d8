package store

import (
	"context"
	"fmt"
	"strings"

	"handcrafted-haven/internal/apperr"
	"handcrafted-haven/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	customerColumns = "id, full_name, phone, shipping_address, profile_photo_url, created_at, updated_at"
	sellerColumns   = "id, business_name, bio, location, phone, profile_photo_url, created_at, updated_at"
)

// CreateUser registers an account and its empty role profile together
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, user, `
			INSERT INTO users (email, password_hash, user_type)
			VALUES ($1, $2, $3)
			RETURNING id, email, password_hash, user_type, created_at`,
			strings.ToLower(user.Email), user.PasswordHash, user.UserType)
		if isUniqueViolation(err) {
			return apperr.Conflict("email %s is already registered", user.Email)
		}
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		profileTable := "customers"
		if user.UserType == models.RoleSeller {
			profileTable = "sellers"
		}
		_, err = tx.ExecContext(ctx, "INSERT INTO "+profileTable+" (id) VALUES ($1)", user.ID)
		if err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		return nil
	})
}

// GetUserByEmail retrieves a user by email, case-insensitively
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user,
		"SELECT id, email, password_hash, user_type, created_at FROM users WHERE email = $1",
		strings.ToLower(email))
	if isNoRows(err) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID
func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user,
		"SELECT id, email, password_hash, user_type, created_at FROM users WHERE id = $1", id)
	if isNoRows(err) {
		return nil, apperr.NotFound("user not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetCustomerProfile retrieves a customer profile
func (s *Store) GetCustomerProfile(ctx context.Context, id uuid.UUID) (*models.CustomerProfile, error) {
	var p models.CustomerProfile
	err := s.db.GetContext(ctx, &p, "SELECT "+customerColumns+" FROM customers WHERE id = $1", id)
	if isNoRows(err) {
		return nil, apperr.NotFound("customer profile not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateCustomerProfile writes the editable customer fields
func (s *Store) UpdateCustomerProfile(ctx context.Context, p *models.CustomerProfile) error {
	err := s.db.GetContext(ctx, p, `
		UPDATE customers
		SET full_name = $1, phone = $2, shipping_address = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING `+customerColumns,
		p.FullName, p.Phone, p.ShippingAddress, p.ID)
	if isNoRows(err) {
		return apperr.NotFound("customer profile not found: %s", p.ID)
	}
	return err
}

// GetSellerProfile retrieves a seller profile
func (s *Store) GetSellerProfile(ctx context.Context, id uuid.UUID) (*models.SellerProfile, error) {
	var p models.SellerProfile
	err := s.db.GetContext(ctx, &p, "SELECT "+sellerColumns+" FROM sellers WHERE id = $1", id)
	if isNoRows(err) {
		return nil, apperr.NotFound("seller profile not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateSellerProfile writes the editable seller fields
func (s *Store) UpdateSellerProfile(ctx context.Context, p *models.SellerProfile) error {
	err := s.db.GetContext(ctx, p, `
		UPDATE sellers
		SET business_name = $1, bio = $2, location = $3, phone = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING `+sellerColumns,
		p.BusinessName, p.Bio, p.Location, p.Phone, p.ID)
	if isNoRows(err) {
		return apperr.NotFound("seller profile not found: %s", p.ID)
	}
	return err
}

// SetProfilePhoto stores the photo URL on the profile matching role
func (s *Store) SetProfilePhoto(ctx context.Context, userID uuid.UUID, role models.Role, url string) error {
	table := "customers"
	if role == models.RoleSeller {
		table = "sellers"
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE "+table+" SET profile_photo_url = $1, updated_at = NOW() WHERE id = $2", url, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("profile not found: %s", userID)
	}
	return nil
}
