package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/courier-app/courier/internal/platform/httpx"
)

// Service implements the user directory: registration, credential
// verification, login bookkeeping and read-only lookups.
type Service struct {
	repo  RepositoryPort
	cache *Cache
	cost  int
	now   func() time.Time
}

// NewService constructs a Service. cache may be nil, in which case summary
// lookups always hit the repository. cost is the bcrypt work factor;
// out-of-range values fall back to the bcrypt default.
func NewService(repo RepositoryPort, cache *Cache, cost int) *Service {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		repo:  repo,
		cache: cache,
		cost:  cost,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Register hashes the password and persists a new user. Uniqueness is left
// to the store; a duplicate username comes back as ErrDuplicate. The hash
// runs on the calling goroutine only, so concurrent registrations never
// serialize behind each other.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Detail, error) {
	if err := validateRegister(req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("users: hash password: %w", err)
	}

	now := s.now()
	user := User{
		Username:     req.Username,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		JoinedAt:     now,
		LastLoginAt:  now,
	}
	if err := s.repo.Insert(ctx, user); err != nil {
		return nil, err
	}

	detail := user.detail()
	return &detail, nil
}

// Authenticate reports whether the credentials match. An unknown username
// returns false without error; callers cannot tell it apart from a wrong
// password. Storage failures still propagate.
func (s *Service) Authenticate(ctx context.Context, username, password string) (bool, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return false, nil
	}
	return true, nil
}

// UpdateLoginTimestamp stamps last_login_at for an existing user.
func (s *Service) UpdateLoginTimestamp(ctx context.Context, username string) error {
	return s.repo.TouchLastLogin(ctx, username, s.now())
}

// All returns every user summary, username ascending.
func (s *Service) All(ctx context.Context) ([]Summary, error) {
	return s.repo.List(ctx)
}

// Get returns the detail view for one user.
func (s *Service) Get(ctx context.Context, username string) (*Detail, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	detail := user.detail()
	return &detail, nil
}

// GetSummary resolves a participant summary, consulting the redis cache
// first. Used by the message store to attach participants.
func (s *Service) GetSummary(ctx context.Context, username string) (*Summary, error) {
	if cached, ok := s.cache.Get(ctx, username); ok {
		return cached, nil
	}
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	summary := user.summary()
	s.cache.Set(ctx, summary)
	return &summary, nil
}

func validateRegister(req RegisterRequest) error {
	missing := []string{}
	for field, value := range map[string]string{
		"username":   req.Username,
		"password":   req.Password,
		"first_name": req.FirstName,
		"last_name":  req.LastName,
		"phone":      req.Phone,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields", httpx.ErrValidation)
	}
	if len(req.Password) > 72 {
		return fmt.Errorf("%w: password longer than 72 bytes", httpx.ErrValidation)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, httpx.ErrNotFound)
}
