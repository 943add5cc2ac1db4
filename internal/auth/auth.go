// Package auth manages operator accounts: registration, login and removal.
package auth

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/internal/repository"
	"github.com/talkincode/stockroom/pkg/common"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 50
	minPasswordLen = 6
	maxPasswordLen = 72 // bcrypt input limit
)

var credentialPattern = regexp.MustCompile(`^[A-Za-z0-9@#$%^&+=!.,;:]*$`)

// ValidateCredentials checks username and password against the account rules
func ValidateCredentials(username, password string) error {
	switch {
	case username == "" || password == "":
		return domain.NewValidationError("", "username and password are required")
	case len(username) < minUsernameLen || len(username) > maxUsernameLen:
		return domain.NewValidationError("username", "must be between 3 and 50 characters")
	case len(password) < minPasswordLen:
		return domain.NewValidationError("password", "must be at least 6 characters")
	case len(password) > maxPasswordLen:
		return domain.NewValidationError("password", "must be at most 72 characters")
	case !credentialPattern.MatchString(username) || !credentialPattern.MatchString(password):
		return domain.NewValidationError("", "username and password may contain only latin letters, digits and punctuation")
	}
	return nil
}

// HashPassword returns the bcrypt hash of password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(hash), nil
}

// Service handles operator accounts
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Register creates a storekeeper account
func (s *Service) Register(ctx context.Context, username, password, confirm string) (*domain.SysUser, error) {
	username = strings.TrimSpace(username)
	if err := ValidateCredentials(username, password); err != nil {
		return nil, err
	}
	if password != confirm {
		return nil, domain.NewValidationError("confirm_password", "passwords do not match")
	}

	users := repository.NewGormUserRepository(s.db)
	if _, err := users.GetByUsername(ctx, username); err == nil {
		return nil, &domain.ConflictError{Message: "username is already taken"}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &domain.SysUser{
		ID:        common.UUIDint64(),
		Username:  username,
		Password:  hash,
		Role:      domain.RoleStorekeeper,
		LastLogin: time.Now(),
	}
	if err := users.Create(ctx, user); err != nil {
		// unique index on username catches a concurrent registration
		if _, lookupErr := users.GetByUsername(ctx, username); lookupErr == nil {
			return nil, &domain.ConflictError{Message: "username is already taken"}
		}
		return nil, err
	}
	zap.L().Info("user registered", zap.Int64("user_id", user.ID), zap.String("username", username))
	return user, nil
}

// Authenticate verifies a username and password pair
func (s *Service) Authenticate(ctx context.Context, username, password string) (*domain.SysUser, error) {
	users := repository.NewGormUserRepository(s.db)
	user, err := users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, errors.Wrap(domain.ErrUnauthorized, "invalid username or password")
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, errors.Wrap(domain.ErrUnauthorized, "invalid username or password")
	}

	user.LastLogin = time.Now()
	if err := users.Update(ctx, user.ID, map[string]interface{}{"last_login": user.LastLogin}); err != nil {
		zap.L().Warn("update last login failed", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	return user, nil
}

// Get returns the account with the given id
func (s *Service) Get(ctx context.Context, id int64) (*domain.SysUser, error) {
	return repository.NewGormUserRepository(s.db).GetByID(ctx, id)
}

// Exists reports whether the account with the given id is still present
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	_, err := s.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// DeleteAccount removes an account unless it is the last one left
func (s *Service) DeleteAccount(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := repository.NewGormUserRepository(tx)
		if _, err := users.GetByID(ctx, id); err != nil {
			return err
		}
		count, err := users.Count(ctx)
		if err != nil {
			return err
		}
		if count <= 1 {
			return &domain.ConflictError{Message: "the last remaining account cannot be deleted"}
		}
		return users.Delete(ctx, id)
	})
}
