package service

import (
	"context"
	"testing"

	"tour-booking-service/config"
	"tour-booking-service/internal/models"
	"tour-booking-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserStore struct {
	users  map[int64]*models.User
	nextID int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[int64]*models.User), nextID: 1}
}

func (f *fakeUserStore) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = f.nextID
	f.nextID++
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, user := range f.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (f *fakeUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func newTestUserService() (*UserService, *fakeUserStore) {
	st := newFakeUserStore()
	svc := NewUserService(st, config.AuthConfig{JWTSecret: "test-secret", TokenTTLHour: 1})
	return svc, st
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestUserService()
	ctx := context.Background()

	user, err := svc.Register(ctx, "jane", "jane@example.com", "hunter22")
	require.NoError(t, err)
	assert.False(t, user.IsAdmin)
	assert.NotEqual(t, "hunter22", user.PasswordHash)

	token, logged, err := svc.Login(ctx, "jane", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)

	claims, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.False(t, claims.IsAdmin)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestUserService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "jane", "jane@example.com", "hunter22")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "jane", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterDuplicates(t *testing.T) {
	svc, _ := newTestUserService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "jane", "jane@example.com", "hunter22")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "jane", "other@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = svc.Register(ctx, "janet", "jane@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestUserService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "", "jane@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Register(ctx, "jane", "not-an-email", "hunter22")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Register(ctx, "jane", "jane@example.com", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestVerifyTokenRejectsTampered(t *testing.T) {
	svc, _ := newTestUserService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "jane", "jane@example.com", "hunter22")
	require.NoError(t, err)
	token, _, err := svc.Login(ctx, "jane", "hunter22")
	require.NoError(t, err)

	_, err = svc.VerifyToken(token + "x")
	assert.Error(t, err)

	other := NewUserService(newFakeUserStore(), config.AuthConfig{JWTSecret: "different-secret", TokenTTLHour: 1})
	_, err = other.VerifyToken(token)
	assert.Error(t, err)
}
