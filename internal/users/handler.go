package users

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/courier-app/courier/internal/platform/httpx"
	"github.com/courier-app/courier/internal/shared"
	"github.com/courier-app/courier/internal/token"
)

// Handler wires HTTP endpoints for registration, login and user lookups.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	issuer    *token.Issuer
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, issuer *token.Issuer) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		issuer:    issuer,
		validator: validator.New(),
	}
}

// MountAuthRoutes registers the unauthenticated credential endpoints.
func (h *Handler) MountAuthRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
}

// MountUserRoutes registers the authenticated directory endpoints.
func (h *Handler) MountUserRoutes(r chi.Router) {
	r.Get("/", h.listUsers)
	r.Get("/{username}", h.showUser)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed body", httpx.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, fieldErrors(err)))
		return
	}

	detail, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.logger.Warn("register failed", slog.String("username", req.Username), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, detail)
}

type loginResponse struct {
	Token string `json:"token"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed body", httpx.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, fieldErrors(err)))
		return
	}

	ok, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.Error("authenticate", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if !ok {
		httpx.RespondError(w, fmt.Errorf("%w: invalid credentials", httpx.ErrUnauthorized))
		return
	}

	// The login already succeeded; a failed timestamp update is logged,
	// not surfaced.
	if err := h.service.UpdateLoginTimestamp(r.Context(), req.Username); err != nil {
		h.logger.Warn("update login timestamp", slog.String("username", req.Username), slog.Any("error", err))
	}

	credential, err := h.issuer.Issue(req.Username)
	if err != nil {
		h.logger.Error("issue credential", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, loginResponse{Token: credential})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	if shared.IdentityFromContext(r.Context()) == "" {
		httpx.RespondError(w, fmt.Errorf("%w: credential required", httpx.ErrUnauthorized))
		return
	}
	summaries, err := h.service.All(r.Context())
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if summaries == nil {
		summaries = []Summary{}
	}
	httpx.JSON(w, http.StatusOK, summaries)
}

func (h *Handler) showUser(w http.ResponseWriter, r *http.Request) {
	if shared.IdentityFromContext(r.Context()) == "" {
		httpx.RespondError(w, fmt.Errorf("%w: credential required", httpx.ErrUnauthorized))
		return
	}
	username := chi.URLParam(r, "username")
	detail, err := h.service.Get(r.Context(), username)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func fieldErrors(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return "invalid payload"
	}
	msg := ""
	for i, fieldErr := range verrs {
		if i > 0 {
			msg += ", "
		}
		msg += fieldErr.Field() + " " + fieldErr.Tag()
	}
	return msg
}
