package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/courier-app/courier/internal/platform/httpx"
)

type mockRepository struct {
	users map[string]*User

	insertErr error
	getErr    error
	listErr   error
	touchErr  error

	getCalls int
}

func newMockRepository() *mockRepository {
	return &mockRepository{users: make(map[string]*User)}
}

func (m *mockRepository) Insert(ctx context.Context, user User) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	if _, ok := m.users[user.Username]; ok {
		return fmt.Errorf("%w: username %q", httpx.ErrDuplicate, user.Username)
	}
	m.users[user.Username] = &user
	return nil
}

func (m *mockRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	user, ok := m.users[username]
	if !ok {
		return nil, fmt.Errorf("%w: user %q", httpx.ErrNotFound, username)
	}
	copied := *user
	return &copied, nil
}

func (m *mockRepository) List(ctx context.Context) ([]Summary, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	names := make([]string, 0, len(m.users))
	for name := range m.users {
		names = append(names, name)
	}
	sort.Strings(names)
	summaries := make([]Summary, 0, len(names))
	for _, name := range names {
		summaries = append(summaries, m.users[name].summary())
	}
	return summaries, nil
}

func (m *mockRepository) TouchLastLogin(ctx context.Context, username string, at time.Time) error {
	if m.touchErr != nil {
		return m.touchErr
	}
	user, ok := m.users[username]
	if !ok {
		return fmt.Errorf("%w: user %q", httpx.ErrNotFound, username)
	}
	user.LastLoginAt = at
	return nil
}

func newTestService(repo RepositoryPort) *Service {
	return NewService(repo, nil, bcrypt.MinCost)
}

func registerRequest(username string) RegisterRequest {
	return RegisterRequest{
		Username:  username,
		Password:  "correcthorse",
		FirstName: "Test",
		LastName:  "User",
		Phone:     "+15550000000",
	}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	repo := newMockRepository()
	service := newTestService(repo)
	ctx := context.Background()

	detail, err := service.Register(ctx, registerRequest("alice"))
	require.NoError(t, err)
	assert.Equal(t, "alice", detail.Username)
	assert.False(t, detail.JoinedAt.IsZero())
	assert.Equal(t, detail.JoinedAt, detail.LastLoginAt)

	ok, err := service.Authenticate(ctx, "alice", "correcthorse")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = service.Authenticate(ctx, "alice", "wrongpass")
	require.NoError(t, err)
	assert.False(t, ok)

	// Unknown user is indistinguishable from a wrong password.
	ok, err = service.Authenticate(ctx, "nobody", "x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthenticatePropagatesStorageFailure(t *testing.T) {
	repo := newMockRepository()
	repo.getErr = errors.New("connection refused")
	service := newTestService(repo)

	_, err := service.Authenticate(context.Background(), "alice", "pw")
	require.Error(t, err)
	assert.False(t, errors.Is(err, httpx.ErrNotFound))
}

func TestRegisterDuplicateUsername(t *testing.T) {
	repo := newMockRepository()
	service := newTestService(repo)
	ctx := context.Background()

	_, err := service.Register(ctx, registerRequest("alice"))
	require.NoError(t, err)

	_, err = service.Register(ctx, registerRequest("alice"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpx.ErrDuplicate))
}

func TestRegisterRequiresAllFields(t *testing.T) {
	repo := newMockRepository()
	service := newTestService(repo)

	for name, mutate := range map[string]func(*RegisterRequest){
		"username":   func(r *RegisterRequest) { r.Username = "" },
		"password":   func(r *RegisterRequest) { r.Password = "" },
		"first name": func(r *RegisterRequest) { r.FirstName = " " },
		"last name":  func(r *RegisterRequest) { r.LastName = "" },
		"phone":      func(r *RegisterRequest) { r.Phone = "" },
	} {
		t.Run(name, func(t *testing.T) {
			req := registerRequest("bob")
			mutate(&req)
			_, err := service.Register(context.Background(), req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, httpx.ErrValidation))
		})
	}
}

func TestReadOperationsNeverExposeHash(t *testing.T) {
	repo := newMockRepository()
	service := newTestService(repo)
	ctx := context.Background()

	_, err := service.Register(ctx, registerRequest("alice"))
	require.NoError(t, err)
	storedHash := repo.users["alice"].PasswordHash
	require.NotEmpty(t, storedHash)

	detail, err := service.Get(ctx, "alice")
	require.NoError(t, err)
	detailJSON, err := json.Marshal(detail)
	require.NoError(t, err)
	assert.NotContains(t, string(detailJSON), storedHash)
	assert.NotContains(t, string(detailJSON), "hash")

	all, err := service.All(ctx)
	require.NoError(t, err)
	allJSON, err := json.Marshal(all)
	require.NoError(t, err)
	assert.NotContains(t, string(allJSON), storedHash)
	assert.NotContains(t, string(allJSON), "hash")
}

func TestAllOrderedByUsername(t *testing.T) {
	repo := newMockRepository()
	service := newTestService(repo)
	ctx := context.Background()

	for _, name := range []string{"charlie", "alice", "bob"} {
		_, err := service.Register(ctx, registerRequest(name))
		require.NoError(t, err)
	}

	all, err := service.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "alice", all[0].Username)
	assert.Equal(t, "bob", all[1].Username)
	assert.Equal(t, "charlie", all[2].Username)
}

func TestUpdateLoginTimestamp(t *testing.T) {
	repo := newMockRepository()
	service := newTestService(repo)
	ctx := context.Background()

	_, err := service.Register(ctx, registerRequest("alice"))
	require.NoError(t, err)
	joined := repo.users["alice"].LastLoginAt

	later := joined.Add(time.Hour)
	service.now = func() time.Time { return later }
	require.NoError(t, service.UpdateLoginTimestamp(ctx, "alice"))
	assert.Equal(t, later, repo.users["alice"].LastLoginAt)

	err = service.UpdateLoginTimestamp(ctx, "nobody")
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpx.ErrNotFound))
}

func TestGetUnknownUser(t *testing.T) {
	service := newTestService(newMockRepository())

	_, err := service.Get(context.Background(), "nobody")
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpx.ErrNotFound))
}
