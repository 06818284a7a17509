package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/device_store/internal/cache"
	"github.com/Skotchmaster/device_store/internal/models"
	"github.com/Skotchmaster/device_store/internal/mykafka"
	"github.com/Skotchmaster/device_store/internal/repo"
	pkg_hash "github.com/Skotchmaster/device_store/pkg/hash"
	"github.com/Skotchmaster/device_store/pkg/logging"
	"github.com/Skotchmaster/device_store/pkg/tokens"
)

type UserService struct {
	Repo   *repo.GormRepo
	Tokens *tokens.Manager
	Cache  cache.DeviceCache
	Events mykafka.Publisher
}

// Register creates the user with an empty basket and returns a session token.
// An empty role means USER.
func (s *UserService) Register(ctx context.Context, email, password, role string) (string, error) {
	l := logging.FromContext(ctx).With("svc", "user.register")

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", fmt.Errorf("email and password are required: %w", ErrValidation)
	}

	userRole := models.RoleUser
	if role != "" {
		r, ok := models.ParseRole(role)
		if !ok {
			return "", fmt.Errorf("unknown role %q: %w", role, ErrValidation)
		}
		userRole = r
	}

	pwHash, err := pkg_hash.HashPassword(password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return "", err
	}

	user := models.User{Email: email, Password: pwHash, Role: userRole}
	if err := s.Repo.CreateUserWithBasket(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			return "", fmt.Errorf("email %s: %w", email, ErrConflict)
		}
		return "", err
	}

	token, err := s.Tokens.Issue(user.ID, user.Email, string(user.Role))
	if err != nil {
		return "", err
	}

	publish(ctx, s.Events, mykafka.TopicUser, strconv.FormatUint(uint64(user.ID), 10), map[string]any{
		"type":   "user_registered",
		"userID": user.ID,
		"role":   user.Role,
	})
	return token, nil
}

// Login reports unknown email and wrong password the same way.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", fmt.Errorf("email and password are required: %w", ErrValidation)
	}

	user, err := s.Repo.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUnauthorized
		}
		return "", err
	}
	if !pkg_hash.CheckPassword(user.Password, password) {
		return "", ErrUnauthorized
	}

	return s.Tokens.Issue(user.ID, user.Email, string(user.Role))
}

// Check re-issues a token for an already authenticated caller.
// Check re-issues a token from the stored account, so a deleted user or a
// changed role is reflected instead of echoing the presented claims.
func (s *UserService) Check(ctx context.Context, claims *tokens.Claims) (string, error) {
	if claims == nil {
		return "", ErrUnauthorized
	}
	user, err := s.Repo.GetUserByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("user %d no longer exists: %w", claims.ID, ErrUnauthorized)
		}
		return "", err
	}
	return s.Tokens.Issue(user.ID, user.Email, string(user.Role))
}

func (s *UserService) Delete(ctx context.Context, id uint) error {
	if id == 0 {
		return fmt.Errorf("user id is required: %w", ErrValidation)
	}

	rated, err := s.Repo.DeleteUser(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		return err
	}

	if s.Cache != nil {
		if err := s.Cache.Invalidate(ctx, rated...); err != nil {
			logging.FromContext(ctx).Warn("cache_invalidate_failed", "devices", rated, "error", err)
		}
	}
	publish(ctx, s.Events, mykafka.TopicUser, strconv.FormatUint(uint64(id), 10), map[string]any{
		"type":   "user_deleted",
		"userID": id,
	})
	return nil
}
