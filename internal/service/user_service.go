package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"cryptoacademy-backend/internal/authorization"
	"cryptoacademy-backend/internal/models"
	"cryptoacademy-backend/internal/repository"
	"cryptoacademy-backend/pkg/logger"
)

// UserSyncCache remembers which users had their profile stored recently.
type UserSyncCache interface {
	MarkUserSynced(userID uint) (bool, error)
}

// UserProfile carries the identity claims of a verified token.
type UserProfile struct {
	ID        uint
	Email     string
	Name      string
	AvatarURL string
	Role      authorization.UserRole
}

// UserService mirrors auth provider profiles into the users table.
type UserService struct {
	store repository.Store
	cache UserSyncCache
}

func NewUserService(store repository.Store, cache UserSyncCache) *UserService {
	return &UserService{store: store, cache: cache}
}

func (s *UserService) SetRepositories(store repository.Store) {
	if s == nil {
		return
	}
	s.store = store
}

// Sync stores profile at most once per sync window and returns the stored
// user. The stored role wins over the token role once the user exists.
func (s *UserService) Sync(profile UserProfile) (*models.User, error) {
	if profile.ID == 0 {
		return nil, ErrUnauthenticated
	}
	if s == nil || s.store == nil {
		return nil, errors.New("user repository not configured")
	}
	users := s.store.Repositories().Users

	fresh := true
	if s.cache != nil {
		first, err := s.cache.MarkUserSynced(profile.ID)
		if err != nil {
			logger.Warn("Failed to check user sync marker", map[string]interface{}{"user_id": profile.ID, "error": err.Error()})
		} else {
			fresh = first
		}
	}

	if !fresh {
		user, err := users.GetByID(profile.ID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to load user: %w", err)
		}
	}

	role := profile.Role
	if !role.IsValid() {
		role = authorization.RoleLearner
	}
	now := time.Now().UTC()
	user := &models.User{
		ID:         profile.ID,
		Email:      strings.TrimSpace(profile.Email),
		Name:       strings.TrimSpace(profile.Name),
		AvatarURL:  strings.TrimSpace(profile.AvatarURL),
		Role:       role,
		LastSeenAt: &now,
	}
	if err := users.Upsert(user); err != nil {
		return nil, fmt.Errorf("failed to store user: %w", err)
	}
	return users.GetByID(profile.ID)
}

func (s *UserService) GetProfile(actor authorization.Actor) (*models.User, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}
	if s == nil || s.store == nil {
		return nil, errors.New("user repository not configured")
	}
	user, err := s.store.Repositories().Users.GetByID(actor.UserID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	user.AvatarURL = AvatarURLFor(user.ID, user.AvatarURL)
	return user, nil
}

// GetUser returns any user by id.
func (s *UserService) GetUser(id uint) (*models.User, error) {
	if s == nil || s.store == nil {
		return nil, errors.New("user repository not configured")
	}
	user, err := s.store.Repositories().Users.GetByID(id)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return user, nil
}
