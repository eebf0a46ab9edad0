package clients

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/netpanel/netpanel/internal/domain"
	"github.com/netpanel/netpanel/internal/http/middleware"
	"github.com/netpanel/netpanel/internal/httputil"
	"github.com/netpanel/netpanel/internal/validate"
)

// ClientStore is the persistence contract for client records. Every operation
// is scoped to the owning user.
type ClientStore interface {
	Create(ctx context.Context, client *domain.Client) error
	List(ctx context.Context, userID uuid.UUID, search string) ([]domain.Client, error)
	Delete(ctx context.Context, userID, clientID uuid.UUID) error
}

// Handler handles owner-scoped client records. All operations run against the
// authenticated user's records only.
type Handler struct {
	logger  *slog.Logger
	clients ClientStore
}

// NewHandler creates a new clients handler.
func NewHandler(logger *slog.Logger, clients ClientStore) *Handler {
	return &Handler{logger: logger, clients: clients}
}

// CreateClientRequest represents a client creation request.
type CreateClientRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	Package   string `json:"package"`
}

// ClientResponse is a client record with every free-text field HTML-encoded.
// Encoding happens here on every response regardless of input validation.
type ClientResponse struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Package   string    `json:"package"`
}

func encodeClient(c domain.Client) ClientResponse {
	return ClientResponse{
		ID:        c.ID,
		FirstName: validate.EncodeForOutput(c.FirstName),
		LastName:  validate.EncodeForOutput(c.LastName),
		Email:     validate.EncodeForOutput(c.Email),
		Phone:     validate.EncodeForOutput(c.Phone),
		Address:   validate.EncodeForOutput(c.Address),
		Package:   validate.EncodeForOutput(c.Package),
	}
}

// List returns the authenticated user's clients, optionally filtered by a
// search term.
// GET /clients?search=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Fail(w, http.StatusUnauthorized, "missing authorization")
		return
	}

	search := validate.SanitizeString(r.URL.Query().Get("search"), 100)

	list, err := h.clients.List(r.Context(), userID, search)
	if err != nil {
		h.logger.Error("failed to list clients", "error", err, "user_id", userID)
		httputil.Fail(w, http.StatusInternalServerError, "Server error")
		return
	}

	out := make([]ClientResponse, 0, len(list))
	for _, c := range list {
		out = append(out, encodeClient(c))
	}

	httputil.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"clients": out,
	})
}

// Create adds a client under the authenticated user.
// POST /clients
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Fail(w, http.StatusUnauthorized, "missing authorization")
		return
	}

	var req CreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var inputErrors []string
	firstName, err := validate.Name(req.FirstName, "First name", 100)
	if err != nil {
		inputErrors = append(inputErrors, err.Error())
	}
	lastName, err := validate.Name(req.LastName, "Last name", validate.MaxNameLen)
	if err != nil {
		inputErrors = append(inputErrors, err.Error())
	}
	email, err := validate.Email(req.Email)
	if err != nil {
		inputErrors = append(inputErrors, err.Error())
	}
	phone, err := validate.Phone(req.Phone)
	if err != nil {
		inputErrors = append(inputErrors, err.Error())
	}
	address, err := validate.Address(req.Address)
	if err != nil {
		inputErrors = append(inputErrors, err.Error())
	}
	pkg, err := validate.Package(req.Package)
	if err != nil {
		inputErrors = append(inputErrors, err.Error())
	}
	if len(inputErrors) > 0 {
		httputil.FailWithErrors(w, http.StatusBadRequest, "Invalid input data", inputErrors)
		return
	}

	client := &domain.Client{
		ID:        uuid.New(),
		UserID:    userID,
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Phone:     phone,
		Address:   address,
		Package:   pkg,
		CreatedAt: time.Now(),
	}

	if err := h.clients.Create(r.Context(), client); err != nil {
		if errors.Is(err, domain.ErrClientAlreadyExists) {
			httputil.Fail(w, http.StatusBadRequest, "A client with this email already exists")
			return
		}
		h.logger.Error("failed to create client", "error", err, "user_id", userID)
		httputil.Fail(w, http.StatusInternalServerError, "Server error")
		return
	}

	httputil.JSON(w, http.StatusCreated, map[string]any{
		"success":  true,
		"clientId": client.ID,
	})
}

// Delete removes one of the authenticated user's clients. A record owned by
// someone else reports not found, the same as a missing record.
// DELETE /clients/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Fail(w, http.StatusUnauthorized, "missing authorization")
		return
	}

	clientID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Fail(w, http.StatusNotFound, "Client not found")
		return
	}

	if err := h.clients.Delete(r.Context(), userID, clientID); err != nil {
		if errors.Is(err, domain.ErrClientNotFound) {
			httputil.Fail(w, http.StatusNotFound, "Client not found")
			return
		}
		h.logger.Error("failed to delete client", "error", err, "user_id", userID)
		httputil.Fail(w, http.StatusInternalServerError, "Server error")
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{"success": true})
}
