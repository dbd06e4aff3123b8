package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/servicedesk/repair-crm/internal/database"
	"github.com/servicedesk/repair-crm/internal/models"
	"github.com/servicedesk/repair-crm/pkg/jwt"
	"github.com/servicedesk/repair-crm/pkg/validator"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// userCacheTTL bounds how stale a cached directory entry may be
const userCacheTTL = 30 * time.Second

// UserService handles authentication and the user directory
type UserService struct {
	users      UserStore
	jwtService *jwt.Service
	mobile     *validator.MobileValidator
	bcryptCost int
	cache      *cache.Cache
	logger     logrus.FieldLogger
}

// NewUserService creates a new UserService
func NewUserService(
	users UserStore,
	jwtService *jwt.Service,
	mobile *validator.MobileValidator,
	bcryptCost int,
	logger logrus.FieldLogger,
) *UserService {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}

	return &UserService{
		users:      users,
		jwtService: jwtService,
		mobile:     mobile,
		bcryptCost: bcryptCost,
		cache:      cache.New(userCacheTTL, 2*userCacheTTL),
		logger:     logger,
	}
}

// Login checks username and password and issues an access token
func (s *UserService) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.CanAuthenticate() {
		return nil, ErrAccountDisabled
	}

	token, expiresAt, err := s.jwtService.GenerateAccessToken(user.ID, user.Username, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("User logged in")

	return &models.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		User:        user,
	}, nil
}

// Create registers a new staff user
func (s *UserService) Create(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	username := strings.TrimSpace(req.Username)

	var mobile *string
	if req.Mobile != nil && strings.TrimSpace(*req.Mobile) != "" {
		national, err := s.mobile.Validate(*req.Mobile)
		if err != nil {
			return nil, newValidationError("validation failed", FieldIssue{Field: "mobile", Message: err.Error()})
		}
		mobile = &national
	}

	var email *string
	if req.Email != nil && strings.TrimSpace(*req.Email) != "" {
		normalized := strings.ToLower(strings.TrimSpace(*req.Email))
		email = &normalized
	}

	_, err := s.users.GetByUsername(ctx, username)
	if err == nil {
		return nil, conflictError(fmt.Errorf("username %q is already taken", username))
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         req.Role,
		Name:         strings.TrimSpace(req.Name),
		Mobile:       mobile,
		Email:        email,
		IsActive:     true,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("User created")

	return user, nil
}

// List returns users, optionally including soft-deleted ones
func (s *UserService) List(ctx context.Context, includeDeleted bool) ([]*models.User, error) {
	return s.users.List(ctx, includeDeleted)
}

// Delete soft-deletes a user. Assignments referencing the user are kept.
func (s *UserService) Delete(ctx context.Context, id, deletedBy int64) error {
	if id == deletedBy {
		return newValidationError("you cannot delete your own account")
	}

	err := s.users.SoftDelete(ctx, id, deletedBy)
	if errors.Is(err, database.ErrNotFound) {
		return notFoundError("user", id)
	}
	if err != nil {
		return err
	}

	s.cache.Delete(userCacheKey(id))
	return nil
}

// SetActive activates or deactivates a user
func (s *UserService) SetActive(ctx context.Context, id int64, active bool) (*models.User, error) {
	err := s.users.SetActive(ctx, id, active)
	if errors.Is(err, database.ErrNotFound) {
		return nil, notFoundError("user", id)
	}
	if err != nil {
		return nil, err
	}

	s.cache.Delete(userCacheKey(id))
	return s.GetUser(ctx, id)
}

// GetUser returns a user by id, served from a short-lived cache
func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	if cached, ok := s.cache.Get(userCacheKey(id)); ok {
		u := *cached.(*models.User)
		return &u, nil
	}

	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, notFoundError("user", id)
	}
	if err != nil {
		return nil, err
	}

	s.remember(user)
	return user, nil
}

// GetUsers resolves several ids at once. Unknown ids are absent from the map.
func (s *UserService) GetUsers(ctx context.Context, ids []int64) (map[int64]*models.User, error) {
	found := make(map[int64]*models.User, len(ids))
	missing := make([]int64, 0, len(ids))

	for _, id := range ids {
		if _, done := found[id]; done {
			continue
		}
		if cached, ok := s.cache.Get(userCacheKey(id)); ok {
			u := *cached.(*models.User)
			found[id] = &u
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) == 0 {
		return found, nil
	}

	users, err := s.users.GetByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, user := range users {
		s.remember(user)
		found[user.ID] = user
	}

	return found, nil
}

func (s *UserService) remember(user *models.User) {
	u := *user
	s.cache.Set(userCacheKey(user.ID), &u, cache.DefaultExpiration)
}

func userCacheKey(id int64) string {
	return "user:" + strconv.FormatInt(id, 10)
}
