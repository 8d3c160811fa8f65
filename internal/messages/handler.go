package messages

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/courier-app/courier/internal/platform/httpx"
	"github.com/courier-app/courier/internal/shared"
)

// Handler wires HTTP endpoints for the message store. All routes sit behind
// the auth middleware; the identity it injects is handed to the service as
// the requesting username.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers message routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.createMessage)
	r.Get("/outbox", h.listOutbox)
	r.Get("/inbox", h.listInbox)
	r.Get("/{id}", h.showMessage)
	r.Post("/{id}/read", h.markRead)
}

func (h *Handler) createMessage(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed body", httpx.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: to_username and body are required", httpx.ErrValidation))
		return
	}

	created, err := h.service.Create(r.Context(), identity, req.ToUsername, req.Body)
	if err != nil {
		h.logger.Warn("create message", slog.String("from", identity), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) showMessage(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	detail, err := h.service.Get(r.Context(), id, identity)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	receipt, err := h.service.MarkRead(r.Context(), id, identity)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, receipt)
}

func (h *Handler) listOutbox(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}
	entries, err := h.service.Outbox(r.Context(), identity)
	if err != nil {
		h.logger.Error("list outbox", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) listInbox(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}
	entries, err := h.service.Inbox(r.Context(), identity)
	if err != nil {
		h.logger.Error("list inbox", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) requireIdentity(w http.ResponseWriter, r *http.Request) (string, bool) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == "" {
		httpx.RespondError(w, fmt.Errorf("%w: credential required", httpx.ErrUnauthorized))
		return "", false
	}
	return identity, true
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid message id", httpx.ErrValidation))
		return uuid.UUID{}, false
	}
	return id, true
}
