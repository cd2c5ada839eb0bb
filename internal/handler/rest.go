package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/stockmatch/internal/model"
	"github.com/vyrodovalexey/stockmatch/internal/session"
	"github.com/vyrodovalexey/stockmatch/internal/store"
)

// maxBlacklistBody caps plain-text blacklist uploads.
const maxBlacklistBody = 1 << 20

// RESTHandler serves the catalog, blacklist, withdrawal and search endpoints.
type RESTHandler struct {
	catalog       store.CatalogStore
	blacklist     store.BlacklistStore
	sup           *session.Supervisor
	searchTimeout time.Duration
	logger        *zap.Logger
}

// NewRESTHandler creates a new RESTHandler instance. Searches are bounded by
// searchTimeout.
func NewRESTHandler(
	catalog store.CatalogStore,
	blacklist store.BlacklistStore,
	sup *session.Supervisor,
	searchTimeout time.Duration,
	logger *zap.Logger,
) *RESTHandler {
	return &RESTHandler{
		catalog:       catalog,
		blacklist:     blacklist,
		sup:           sup,
		searchTimeout: searchTimeout,
		logger:        logger,
	}
}

// RegisterRoutes registers the REST API routes with the router.
func (h *RESTHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	router.HandleFunc("/api/v1/items", h.ListItems).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/items", h.CreateItem).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/items", h.ReplaceItems).Methods(http.MethodPut)
	router.HandleFunc("/api/v1/items/{code}", h.GetItem).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/items/{code}", h.UpdateItem).Methods(http.MethodPut)
	router.HandleFunc("/api/v1/items/{code}", h.DeleteItem).Methods(http.MethodDelete)

	router.HandleFunc("/api/v1/blacklist", h.ListBlacklist).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/blacklist", h.AddBlacklistTerm).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/blacklist", h.ReplaceBlacklist).Methods(http.MethodPut)
	router.HandleFunc("/api/v1/blacklist/{term}", h.RemoveBlacklistTerm).Methods(http.MethodDelete)

	router.HandleFunc("/api/v1/withdrawals", h.ListWithdrawals).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/withdrawals", h.Withdraw).Methods(http.MethodPost)

	router.HandleFunc("/api/v1/search", h.Search).Methods(http.MethodPost)
}

// HealthCheck handles GET /health requests.
func (h *RESTHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:   "healthy",
		Version:  Version,
		Sessions: h.sup.Len(),
	}
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(response))
}

// ListItems handles GET /api/v1/items requests.
func (h *RESTHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.List(r.Context())
	if err != nil {
		h.handleStoreError(w, err, "list items")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(items))
}

// GetItem handles GET /api/v1/items/{code} requests.
func (h *RESTHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.catalog.Get(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		h.handleStoreError(w, err, "get item")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(item))
}

// CreateItem handles POST /api/v1/items requests.
func (h *RESTHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var input model.Item
	if !h.decodeItem(w, r, &input) {
		return
	}

	item, err := h.catalog.Create(r.Context(), &input)
	if err != nil {
		h.handleStoreError(w, err, "create item")
		return
	}

	h.writeJSON(w, http.StatusCreated, model.NewSuccessResponse(item))
}

// UpdateItem handles PUT /api/v1/items/{code} requests.
func (h *RESTHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	var input model.Item
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	input.Code = code
	if err := input.Validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.catalog.Update(r.Context(), code, &input)
	if err != nil {
		h.handleStoreError(w, err, "update item")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(item))
}

// DeleteItem handles DELETE /api/v1/items/{code} requests.
func (h *RESTHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), mux.Vars(r)["code"]); err != nil {
		h.handleStoreError(w, err, "delete item")
		return
	}

	h.writeJSON(w, http.StatusNoContent, nil)
}

// ReplaceItems handles PUT /api/v1/items: a bulk import of the whole catalog.
func (h *RESTHandler) ReplaceItems(w http.ResponseWriter, r *http.Request) {
	var items []model.Item
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.catalog.Replace(r.Context(), items); err != nil {
		h.handleStoreError(w, err, "replace items")
		return
	}

	h.logger.Info("catalog replaced", zap.Int("items", len(items)))
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(map[string]int{"items": len(items)}))
}

// blacklistInput is the JSON body of blacklist writes.
type blacklistInput struct {
	Term  string   `json:"term,omitempty"`
	Terms []string `json:"terms,omitempty"`
}

// ListBlacklist handles GET /api/v1/blacklist. Clients accepting text/plain
// get the one-term-per-line file format.
func (h *RESTHandler) ListBlacklist(w http.ResponseWriter, r *http.Request) {
	terms, err := h.blacklist.List(r.Context())
	if err != nil {
		h.handleStoreError(w, err, "list blacklist")
		return
	}

	if r.Header.Get("Accept") == "text/plain" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, store.FormatBlacklist(terms))
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(terms))
}

// AddBlacklistTerm handles POST /api/v1/blacklist.
func (h *RESTHandler) AddBlacklistTerm(w http.ResponseWriter, r *http.Request) {
	var input blacklistInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	terms, err := h.blacklist.Add(r.Context(), input.Term)
	if err != nil {
		h.handleStoreError(w, err, "add blacklist term")
		return
	}

	h.writeJSON(w, http.StatusCreated, model.NewSuccessResponse(terms))
}

// ReplaceBlacklist handles PUT /api/v1/blacklist with either a JSON body or
// a text/plain file.
func (h *RESTHandler) ReplaceBlacklist(w http.ResponseWriter, r *http.Request) {
	var terms model.BlacklistTerms

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/plain" {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBlacklistBody))
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		terms = store.ParseBlacklist(string(body))
	} else {
		var input blacklistInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		terms = input.Terms
	}

	saved, err := h.blacklist.Replace(r.Context(), terms)
	if err != nil {
		h.handleStoreError(w, err, "replace blacklist")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(saved))
}

// RemoveBlacklistTerm handles DELETE /api/v1/blacklist/{term}.
func (h *RESTHandler) RemoveBlacklistTerm(w http.ResponseWriter, r *http.Request) {
	terms, err := h.blacklist.Remove(r.Context(), mux.Vars(r)["term"])
	if err != nil {
		h.handleStoreError(w, err, "remove blacklist term")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(terms))
}

// withdrawalInput is the body of POST /api/v1/withdrawals. A search result
// can be posted back as is through its lines.
type withdrawalInput struct {
	Lines []model.WithdrawalLine `json:"lines"`
}

// ListWithdrawals handles GET /api/v1/withdrawals.
func (h *RESTHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	records, err := h.catalog.Withdrawals(r.Context())
	if err != nil {
		h.handleStoreError(w, err, "list withdrawals")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(records))
}

// Withdraw handles POST /api/v1/withdrawals.
func (h *RESTHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var input withdrawalInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	records, err := h.catalog.Withdraw(r.Context(), input.Lines)
	if err != nil {
		h.handleStoreError(w, err, "withdraw")
		return
	}

	h.logger.Info("stock withdrawn", zap.Int("lines", len(records)))
	h.writeJSON(w, http.StatusCreated, model.NewSuccessResponse(records))
}

// Search handles POST /api/v1/search. It blocks until the round ends or the
// search timeout expires.
func (h *RESTHandler) Search(w http.ResponseWriter, r *http.Request) {
	var input model.SearchInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.logger.Warn("invalid search body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	req, toleranceSet, err := input.Request()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	catalog, err := h.catalog.List(r.Context())
	if err != nil {
		h.handleStoreError(w, err, "list items")
		return
	}
	req.Blacklist, err = h.blacklist.List(r.Context())
	if err != nil {
		h.handleStoreError(w, err, "list blacklist")
		return
	}
	req = h.sup.WithDefaults(req, toleranceSet)

	ctx, cancel := context.WithTimeout(r.Context(), h.searchTimeout)
	defer cancel()

	result, err := h.sup.Search(ctx, catalog, req)
	if err != nil {
		status := searchStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("search failed", zap.Error(err))
		} else {
			h.logger.Info("search rejected", zap.Int("status", status), zap.Error(err))
		}
		h.writeError(w, status, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(result))
}

// decodeItem reads and validates an item body, writing the error response
// itself. It reports whether the handler should continue.
func (h *RESTHandler) decodeItem(w http.ResponseWriter, r *http.Request, item *model.Item) bool {
	if err := json.NewDecoder(r.Body).Decode(item); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}

	if err := item.Validate(); err != nil {
		h.logger.Warn("validation failed", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, err.Error())
		return false
	}

	return true
}

// handleStoreError handles store errors and writes appropriate HTTP responses.
func (h *RESTHandler) handleStoreError(w http.ResponseWriter, err error, operation string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrTermNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInvalidID),
		errors.Is(err, store.ErrEmptyTerm),
		errors.Is(err, store.ErrNilItem),
		errors.Is(err, model.ErrEmptyWithdrawal),
		errors.Is(err, model.ErrInvalidUnits),
		errors.Is(err, model.ErrEmptyCode),
		errors.Is(err, model.ErrCodeTooLong),
		errors.Is(err, model.ErrNegativePrice),
		errors.Is(err, model.ErrNegativeQuantity),
		errors.Is(err, model.ErrDescriptionLimit):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrAlreadyExists),
		errors.Is(err, store.ErrInsufficientStock):
		h.writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("store operation failed", zap.String("operation", operation), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeJSON writes a JSON response with the given status code.
func (h *RESTHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError writes an error response with the given status code and message.
func (h *RESTHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, model.ErrorResponse{
		Code:    status,
		Message: message,
	})
}
