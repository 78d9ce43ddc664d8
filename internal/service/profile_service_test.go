package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"handcrafted-haven/internal/apperr"
	"handcrafted-haven/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memProfiles struct {
	mu        sync.Mutex
	users     map[uuid.UUID]*models.User
	customers map[uuid.UUID]*models.CustomerProfile
	sellers   map[uuid.UUID]*models.SellerProfile
}

func newMemProfiles() *memProfiles {
	return &memProfiles{
		users:     map[uuid.UUID]*models.User{},
		customers: map[uuid.UUID]*models.CustomerProfile{},
		sellers:   map[uuid.UUID]*models.SellerProfile{},
	}
}

// addUser mirrors sign-up, which creates an empty profile row for the role
func (m *memProfiles) addUser(role models.Role) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.users[id] = &models.User{ID: id, Email: id.String()[:8] + "@example.com", UserType: role}
	if role == models.RoleCustomer {
		m.customers[id] = &models.CustomerProfile{ID: id}
	} else {
		m.sellers[id] = &models.SellerProfile{ID: id}
	}
	return id
}

func (m *memProfiles) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, apperr.NotFound("user not found")
}

func (m *memProfiles) GetCustomerProfile(_ context.Context, id uuid.UUID) (*models.CustomerProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.customers[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, apperr.NotFound("customer profile not found")
}

func (m *memProfiles) UpdateCustomerProfile(_ context.Context, p *models.CustomerProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.customers[p.ID]
	if !ok {
		return apperr.NotFound("customer profile not found")
	}
	p.ProfilePhotoURL = existing.ProfilePhotoURL
	cp := *p
	m.customers[p.ID] = &cp
	return nil
}

func (m *memProfiles) GetSellerProfile(_ context.Context, id uuid.UUID) (*models.SellerProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.sellers[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, apperr.NotFound("seller profile not found")
}

func (m *memProfiles) UpdateSellerProfile(_ context.Context, p *models.SellerProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.sellers[p.ID]
	if !ok {
		return apperr.NotFound("seller profile not found")
	}
	p.ProfilePhotoURL = existing.ProfilePhotoURL
	cp := *p
	m.sellers[p.ID] = &cp
	return nil
}

func (m *memProfiles) SetProfilePhoto(_ context.Context, userID uuid.UUID, role models.Role, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch role {
	case models.RoleCustomer:
		if p, ok := m.customers[userID]; ok {
			p.ProfilePhotoURL = url
			return nil
		}
	case models.RoleSeller:
		if p, ok := m.sellers[userID]; ok {
			p.ProfilePhotoURL = url
			return nil
		}
	}
	return apperr.NotFound("profile not found")
}

func TestCustomerProfileCompletion(t *testing.T) {
	store := newMemProfiles()
	svc := NewProfileService(store, &fakeUploader{})
	ctx := context.Background()
	customer := store.addUser(models.RoleCustomer)

	profile, err := svc.GetProfile(ctx, customer)
	require.NoError(t, err)
	assert.False(t, profile.Complete)
	assert.Nil(t, profile.Seller)

	_, err = svc.UpdateProfile(ctx, customer, models.RoleCustomer, ProfileInput{ShippingAddress: "4 Loom Street"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	profile, err = svc.UpdateProfile(ctx, customer, models.RoleCustomer, ProfileInput{
		FullName:        "  Ada Weaver ",
		ShippingAddress: "4 Loom Street",
		BusinessName:    "ignored for customers",
	})
	require.NoError(t, err)
	assert.True(t, profile.Complete)
	assert.Equal(t, "Ada Weaver", profile.Customer.FullName)
}

func TestSellerProfileCompletion(t *testing.T) {
	store := newMemProfiles()
	svc := NewProfileService(store, &fakeUploader{})
	ctx := context.Background()
	seller := store.addUser(models.RoleSeller)

	_, err := svc.UpdateProfile(ctx, seller, models.RoleSeller, ProfileInput{FullName: "Not a shop"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	profile, err := svc.UpdateProfile(ctx, seller, models.RoleSeller, ProfileInput{
		BusinessName: "Kiln & Co",
		Location:     "Asheville",
	})
	require.NoError(t, err)
	assert.True(t, profile.Complete)
	assert.Nil(t, profile.Customer)
}

func TestUploadPhotoKeepsAcrossProfileEdits(t *testing.T) {
	store := newMemProfiles()
	svc := NewProfileService(store, &fakeUploader{})
	ctx := context.Background()
	seller := store.addUser(models.RoleSeller)

	obj, err := svc.UploadPhoto(ctx, seller, models.RoleSeller, Upload{
		Filename: "me.png",
		Size:     3,
		Reader:   strings.NewReader("png"),
	})
	require.NoError(t, err)
	assert.Contains(t, obj.Key, seller.String())

	profile, err := svc.UpdateProfile(ctx, seller, models.RoleSeller, ProfileInput{BusinessName: "Kiln & Co", Location: "Asheville"})
	require.NoError(t, err)
	assert.Equal(t, obj.URL, profile.Seller.ProfilePhotoURL)
}
