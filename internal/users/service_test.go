package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urbangulal/urbangulal/internal/domain"
	"github.com/urbangulal/urbangulal/internal/storetest"
)

func TestRegisterAndLogin(t *testing.T) {
	s := NewService(storetest.NewDB(t))
	ctx := context.Background()

	u, err := s.Register(ctx, "Asha", "9876543210")
	require.NoError(t, err)
	assert.EqualValues(t, 1, u.UserID)
	assert.Equal(t, "Asha", u.Name)

	_, err = s.Register(ctx, "Asha again", "9876543210")
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))
	assert.Contains(t, err.Error(), "already registered")

	got, err := s.Login(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, u.UserID, got.UserID)
	assert.Equal(t, "Asha", got.Name)

	u2, err := s.Register(ctx, "Vik", "9123456780")
	require.NoError(t, err)
	assert.EqualValues(t, 2, u2.UserID)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestRegisterValidation(t *testing.T) {
	s := NewService(storetest.NewDB(t))
	ctx := context.Background()

	for _, mobile := range []string{"98765", "98765432101", "98765abc10", "+919876543210", ""} {
		_, err := s.Register(ctx, "Asha", mobile)
		assert.True(t, domain.IsValidation(err), mobile)
	}
	_, err := s.Register(ctx, " ", "9876543210")
	assert.True(t, domain.IsValidation(err))
}

func TestLoginUnknown(t *testing.T) {
	s := NewService(storetest.NewDB(t))
	_, err := s.Login(context.Background(), "9000000000")
	assert.True(t, domain.IsNotFound(err))

	_, err = s.Login(context.Background(), "12")
	assert.True(t, domain.IsValidation(err))
}
