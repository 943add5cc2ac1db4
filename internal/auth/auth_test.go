package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/internal/testutil"
)

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		wantErr  bool
	}{
		{"ok", "storekeeper", "s3cret!", false},
		{"empty", "", "", true},
		{"short username", "ab", "secret1", true},
		{"long username", strings.Repeat("a", 51), "secret1", true},
		{"short password", "keeper", "12345", true},
		{"cyrillic", "кладовщик", "secret1", true},
		{"space in password", "keeper", "sec ret1", true},
		{"punctuation", "keeper.one", "a@b#c$d%", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCredentials(tt.username, tt.password)
			if tt.wantErr {
				assert.True(t, errors.Is(err, domain.ErrValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testutil.NewTestDB(t))

	_, err := svc.Register(ctx, "petrov", "secret1", "secret2")
	assert.True(t, errors.Is(err, domain.ErrValidation))

	user, err := svc.Register(ctx, " petrov ", "secret1", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "petrov", user.Username)
	assert.Equal(t, domain.RoleStorekeeper, user.Role)
	assert.NotEqual(t, "secret1", user.Password)

	_, err = svc.Register(ctx, "petrov", "secret1", "secret1")
	assert.True(t, errors.Is(err, domain.ErrConflict))

	got, err := svc.Authenticate(ctx, "petrov", "secret1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate(ctx, "petrov", "wrong-pass")
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	_, err = svc.Authenticate(ctx, "nobody", "secret1")
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestDeleteAccountKeepsLastUser(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testutil.NewTestDB(t))

	first, err := svc.Register(ctx, "first", "secret1", "secret1")
	require.NoError(t, err)
	second, err := svc.Register(ctx, "second", "secret1", "secret1")
	require.NoError(t, err)

	exists, err := svc.Exists(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, svc.DeleteAccount(ctx, second.ID))
	_, err = svc.Get(ctx, second.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	exists, err = svc.Exists(ctx, second.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	err = svc.DeleteAccount(ctx, first.ID)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.True(t, errors.Is(svc.DeleteAccount(ctx, 999), domain.ErrNotFound))
}
