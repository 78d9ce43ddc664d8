package service

import (
	"context"
	"strings"

	"handcrafted-haven/internal/apperr"
	"handcrafted-haven/internal/models"
	"handcrafted-haven/internal/storage"
	"handcrafted-haven/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProfileService handles the role-specific profiles
type ProfileService struct {
	store    ProfileStore
	uploader Uploader
	logger   *zap.Logger
}

// NewProfileService creates a new profile service
func NewProfileService(store ProfileStore, uploader Uploader) *ProfileService {
	return &ProfileService{store: store, uploader: uploader, logger: util.GetLogger()}
}

// Profile is what GET /me/profile returns. Exactly one of Customer and Seller
// is set, matching Role.
type Profile struct {
	UserID   uuid.UUID               `json:"user_id"`
	Email    string                  `json:"email"`
	Role     models.Role             `json:"role"`
	Complete bool                    `json:"complete"`
	Customer *models.CustomerProfile `json:"customer,omitempty"`
	Seller   *models.SellerProfile   `json:"seller,omitempty"`
}

// ProfileInput carries the editable fields of both profile kinds. Fields that
// do not belong to the caller's role are ignored.
type ProfileInput struct {
	FullName        string `json:"full_name"`
	ShippingAddress string `json:"shipping_address"`
	BusinessName    string `json:"business_name"`
	Bio             string `json:"bio"`
	Location        string `json:"location"`
	Phone           string `json:"phone"`
}

// GetProfile loads the profile of userID
func (s *ProfileService) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	ctx, span := util.StartSpan(ctx, "ProfileService.GetProfile")
	defer span.End()

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := &Profile{UserID: user.ID, Email: user.Email, Role: user.UserType}
	switch user.UserType {
	case models.RoleCustomer:
		profile.Customer, err = s.store.GetCustomerProfile(ctx, userID)
		if err != nil {
			return nil, err
		}
		profile.Complete = profile.Customer.Complete()
	case models.RoleSeller:
		profile.Seller, err = s.store.GetSellerProfile(ctx, userID)
		if err != nil {
			return nil, err
		}
		profile.Complete = profile.Seller.Complete()
	}
	return profile, nil
}

// UpdateProfile writes the fields of the caller's own profile kind
func (s *ProfileService) UpdateProfile(ctx context.Context, userID uuid.UUID, role models.Role, in ProfileInput) (*Profile, error) {
	ctx, span := util.StartSpan(ctx, "ProfileService.UpdateProfile")
	defer span.End()

	switch role {
	case models.RoleCustomer:
		p := &models.CustomerProfile{
			ID:              userID,
			FullName:        strings.TrimSpace(in.FullName),
			Phone:           strings.TrimSpace(in.Phone),
			ShippingAddress: strings.TrimSpace(in.ShippingAddress),
		}
		if p.FullName == "" {
			return nil, apperr.Validation("full name is required")
		}
		if err := s.store.UpdateCustomerProfile(ctx, p); err != nil {
			return nil, err
		}
	case models.RoleSeller:
		p := &models.SellerProfile{
			ID:           userID,
			BusinessName: strings.TrimSpace(in.BusinessName),
			Bio:          strings.TrimSpace(in.Bio),
			Location:     strings.TrimSpace(in.Location),
			Phone:        strings.TrimSpace(in.Phone),
		}
		if p.BusinessName == "" {
			return nil, apperr.Validation("business name is required")
		}
		if err := s.store.UpdateSellerProfile(ctx, p); err != nil {
			return nil, err
		}
	default:
		return nil, apperr.Validation("unknown role %q", role)
	}

	s.logger.Info("Profile updated", zap.String("user_id", userID.String()), zap.String("role", string(role)))
	return s.GetProfile(ctx, userID)
}

// UploadPhoto stores a profile photo and links it to the caller's profile
func (s *ProfileService) UploadPhoto(ctx context.Context, userID uuid.UUID, role models.Role, file Upload) (*storage.Object, error) {
	ctx, span := util.StartSpan(ctx, "ProfileService.UploadPhoto")
	defer span.End()

	obj, err := s.uploader.Upload(ctx, userID, storage.KindProfilePhoto, file.Filename, file.Size, file.Reader)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetProfilePhoto(ctx, userID, role, obj.URL); err != nil {
		return nil, err
	}
	return obj, nil
}
