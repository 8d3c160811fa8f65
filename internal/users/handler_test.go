package users

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/courier-app/courier/internal/shared"
	"github.com/courier-app/courier/internal/token"
	_ "github.com/courier-app/courier/testing"
)

func newTestHandler(t *testing.T) (*Handler, *token.Issuer) {
	t.Helper()
	issuer, err := token.NewIssuer("handler-test-secret", time.Hour)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewService(newMockRepository(), nil, bcrypt.MinCost)
	return NewHandler(logger, service, issuer), issuer
}

func newTestRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Route("/auth", h.MountAuthRoutes)
	r.Route("/users", h.MountUserRoutes)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path, body, identity string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if identity != "" {
		req = req.WithContext(shared.ContextWithIdentity(req.Context(), identity))
	}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

const registerAliceBody = `{"username":"alice","password":"correcthorse","first_name":"Alice","last_name":"Anders","phone":"+15550000001"}`

func TestRegisterEndpoint(t *testing.T) {
	handler, _ := newTestHandler(t)
	router := newTestRouter(handler)

	res := doJSON(t, router, http.MethodPost, "/auth/register", registerAliceBody, "")
	require.Equal(t, http.StatusCreated, res.Code)
	assert.Contains(t, res.Body.String(), `"username":"alice"`)
	assert.NotContains(t, res.Body.String(), "password")

	// Same username again conflicts.
	res = doJSON(t, router, http.MethodPost, "/auth/register", registerAliceBody, "")
	assert.Equal(t, http.StatusConflict, res.Code)
}

func TestRegisterEndpointRejectsInvalidPayload(t *testing.T) {
	handler, _ := newTestHandler(t)
	router := newTestRouter(handler)

	res := doJSON(t, router, http.MethodPost, "/auth/register",
		`{"username":"bob","password":"short","first_name":"B","last_name":"B","phone":"1"}`, "")
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = doJSON(t, router, http.MethodPost, "/auth/register", `{not json`, "")
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestLoginEndpoint(t *testing.T) {
	handler, issuer := newTestHandler(t)
	router := newTestRouter(handler)

	res := doJSON(t, router, http.MethodPost, "/auth/register", registerAliceBody, "")
	require.Equal(t, http.StatusCreated, res.Code)

	res = doJSON(t, router, http.MethodPost, "/auth/login",
		`{"username":"alice","password":"correcthorse"}`, "")
	require.Equal(t, http.StatusOK, res.Code)

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.NotEmpty(t, body.Token)
	username, err := issuer.Verify(body.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestLoginEndpointRejectsBadCredentials(t *testing.T) {
	handler, _ := newTestHandler(t)
	router := newTestRouter(handler)

	res := doJSON(t, router, http.MethodPost, "/auth/register", registerAliceBody, "")
	require.Equal(t, http.StatusCreated, res.Code)

	res = doJSON(t, router, http.MethodPost, "/auth/login",
		`{"username":"alice","password":"wrongpass"}`, "")
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = doJSON(t, router, http.MethodPost, "/auth/login",
		`{"username":"nobody","password":"whatever"}`, "")
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestUserEndpointsRequireIdentity(t *testing.T) {
	handler, _ := newTestHandler(t)
	router := newTestRouter(handler)

	res := doJSON(t, router, http.MethodGet, "/users/", "", "")
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = doJSON(t, router, http.MethodGet, "/users/alice", "", "")
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestUserListingAndDetail(t *testing.T) {
	handler, _ := newTestHandler(t)
	router := newTestRouter(handler)

	res := doJSON(t, router, http.MethodPost, "/auth/register", registerAliceBody, "")
	require.Equal(t, http.StatusCreated, res.Code)

	res = doJSON(t, router, http.MethodGet, "/users/", "", "alice")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"username":"alice"`)

	res = doJSON(t, router, http.MethodGet, "/users/alice", "", "alice")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"joined_at"`)

	res = doJSON(t, router, http.MethodGet, "/users/nobody", "", "alice")
	assert.Equal(t, http.StatusNotFound, res.Code)
}
