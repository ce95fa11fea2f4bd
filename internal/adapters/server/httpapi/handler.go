// Package httpapi provides the REST HTTP adapter for the server surfaces.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/evanschultz/filterdeck/internal/adapters/server/common"
)

// maxRequestBodyBytes limits decoded JSON payload size for fail-closed request handling.
const maxRequestBodyBytes int64 = 1 << 20

// Handler serves the versioned API subrouter mounted under `/api/v1`.
type Handler struct {
	reader common.FilterReader
	writer common.FilterService
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hint    string         `json:"hint,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// NewHandler constructs one HTTP API adapter; mutations are served only when reader is a FilterService.
func NewHandler(reader common.FilterReader) *Handler {
	writer, _ := reader.(common.FilterService)
	return &Handler{
		reader: reader,
		writer: writer,
	}
}

// route is one parsed API path.
type route struct {
	resource       string
	subscriptionID string
	filterID       string
}

// ServeHTTP routes one versioned API request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		writeJSONError(w, http.StatusServiceUnavailable, APIError{
			Code:    "service_unavailable",
			Message: "filter service is not configured",
		})
		return
	}
	rt, ok := parseRoute(normalizePath(r.URL.Path))
	if !ok {
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: "endpoint not found",
		})
		return
	}

	switch rt.resource {
	case "subscriptions":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleListSubscriptions(w, r)
	case "subscription":
		if r.Method != http.MethodPatch {
			writeMethodNotAllowed(w, http.MethodPatch)
			return
		}
		h.handleRenameSubscription(w, r, rt.subscriptionID)
	case "filters":
		switch r.Method {
		case http.MethodGet:
			h.handleListFilters(w, r, rt.subscriptionID)
		case http.MethodPost:
			h.handleAddFilter(w, r, rt.subscriptionID)
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	case "filter":
		switch r.Method {
		case http.MethodPatch:
			h.handleUpdateFilter(w, r, rt.filterID)
		case http.MethodDelete:
			h.handleRemoveFilter(w, r, rt)
		default:
			writeMethodNotAllowed(w, http.MethodPatch, http.MethodDelete)
		}
	case "move":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleMoveFilter(w, r, rt)
	case "hits":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleRecordHits(w, r, rt.filterID)
	case "changes":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleListChanges(w, r, rt.subscriptionID)
	}
}

// handleListSubscriptions serves GET `/subscriptions`.
func (h *Handler) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.reader.ListSubscriptions(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"subscriptions": subs,
	})
}

// handleListFilters serves GET `/subscriptions/{id}/filters`.
func (h *Handler) handleListFilters(w http.ResponseWriter, r *http.Request, subscriptionID string) {
	filters, err := h.reader.ListFilters(r.Context(), subscriptionID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"filters": filters,
	})
}

// handleListChanges serves GET `/subscriptions/{id}/changes`.
func (h *Handler) handleListChanges(w http.ResponseWriter, r *http.Request, subscriptionID string) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, APIError{
				Code:    "invalid_request",
				Message: "limit must be an integer",
			})
			return
		}
		limit = parsed
	}
	events, err := h.reader.ListChangeEvents(r.Context(), subscriptionID, limit)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
	})
}

// handleRenameSubscription serves PATCH `/subscriptions/{id}`.
func (h *Handler) handleRenameSubscription(w http.ResponseWriter, r *http.Request, subscriptionID string) {
	if !h.requireWriter(w) {
		return
	}
	var req common.RenameSubscriptionRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	req.SubscriptionID = subscriptionID
	sub, err := h.writer.RenameSubscription(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// handleAddFilter serves POST `/subscriptions/{id}/filters`.
func (h *Handler) handleAddFilter(w http.ResponseWriter, r *http.Request, subscriptionID string) {
	if !h.requireWriter(w) {
		return
	}
	var req common.AddFilterRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	req.SubscriptionID = subscriptionID
	filter, err := h.writer.AddFilter(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, filter)
}

// handleUpdateFilter serves PATCH `/filters/{id}`.
func (h *Handler) handleUpdateFilter(w http.ResponseWriter, r *http.Request, filterID string) {
	if !h.requireWriter(w) {
		return
	}
	var req common.UpdateFilterRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	req.FilterID = filterID
	filter, err := h.writer.UpdateFilter(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, filter)
}

// handleMoveFilter serves POST `/subscriptions/{id}/filters/{filter_id}/move`.
func (h *Handler) handleMoveFilter(w http.ResponseWriter, r *http.Request, rt route) {
	if !h.requireWriter(w) {
		return
	}
	var req common.MoveFilterRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	req.SubscriptionID = rt.subscriptionID
	req.FilterID = rt.filterID
	if err := h.writer.MoveFilter(r.Context(), req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRecordHits serves POST `/filters/{id}/hits`.
func (h *Handler) handleRecordHits(w http.ResponseWriter, r *http.Request, filterID string) {
	if !h.requireWriter(w) {
		return
	}
	var req common.RecordHitsRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	req.FilterID = filterID
	filter, err := h.writer.RecordHits(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, filter)
}

// handleRemoveFilter serves DELETE `/subscriptions/{id}/filters/{filter_id}?index=N`.
func (h *Handler) handleRemoveFilter(w http.ResponseWriter, r *http.Request, rt route) {
	if !h.requireWriter(w) {
		return
	}
	if rt.subscriptionID == "" {
		writeMethodNotAllowed(w, http.MethodPatch)
		return
	}
	index, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("index")))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: "index query parameter is required",
			Hint:    "Pass the filter's current index so stale views cannot remove the wrong rule.",
		})
		return
	}
	if err := h.writer.RemoveFilter(r.Context(), common.RemoveFilterRequest{
		SubscriptionID: rt.subscriptionID,
		FilterID:       rt.filterID,
		Index:          index,
	}); err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requireWriter writes a 501 and returns false when mutations are disabled.
func (h *Handler) requireWriter(w http.ResponseWriter) bool {
	if h.writer != nil {
		return true
	}
	writeJSONError(w, http.StatusNotImplemented, APIError{
		Code:    "not_implemented",
		Message: "server is read-only",
	})
	return false
}

// parseRoute resolves one normalized path into a route.
func parseRoute(path string) (route, bool) {
	parts := strings.Split(path, "/")
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			return route{}, false
		}
	}
	switch {
	case len(parts) == 1 && parts[0] == "subscriptions":
		return route{resource: "subscriptions"}, true
	case len(parts) == 2 && parts[0] == "subscriptions":
		return route{resource: "subscription", subscriptionID: parts[1]}, true
	case len(parts) == 3 && parts[0] == "subscriptions" && parts[2] == "filters":
		return route{resource: "filters", subscriptionID: parts[1]}, true
	case len(parts) == 3 && parts[0] == "subscriptions" && parts[2] == "changes":
		return route{resource: "changes", subscriptionID: parts[1]}, true
	case len(parts) == 4 && parts[0] == "subscriptions" && parts[2] == "filters":
		return route{resource: "filter", subscriptionID: parts[1], filterID: parts[3]}, true
	case len(parts) == 5 && parts[0] == "subscriptions" && parts[2] == "filters" && parts[4] == "move":
		return route{resource: "move", subscriptionID: parts[1], filterID: parts[3]}, true
	case len(parts) == 2 && parts[0] == "filters":
		return route{resource: "filter", filterID: parts[1]}, true
	case len(parts) == 3 && parts[0] == "filters" && parts[2] == "hits":
		return route{resource: "hits", filterID: parts[1]}, true
	default:
		return route{}, false
	}
}

// normalizePath canonicalizes one request path for route matching.
func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.Trim(path, "/")
	return path
}

// writeErrorFrom maps adapter errors into structured HTTP responses.
func writeErrorFrom(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: "unknown error",
		})
	case errors.Is(err, common.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, common.ErrReadOnly):
		writeJSONError(w, http.StatusForbidden, APIError{
			Code:    "read_only",
			Message: err.Error(),
			Hint:    "Downloaded subscriptions cannot be edited.",
		})
	case errors.Is(err, common.ErrConflict):
		writeJSONError(w, http.StatusConflict, APIError{
			Code:    "index_conflict",
			Message: err.Error(),
			Hint:    "Reload the filter list and retry with current indices.",
		})
	case errors.Is(err, common.ErrInvalidRequest):
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: err.Error(),
		})
	default:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: err.Error(),
		})
	}
}

// writeMethodNotAllowed writes a structured 405 response with `Allow` headers.
func writeMethodNotAllowed(w http.ResponseWriter, methods ...string) {
	if len(methods) > 0 {
		w.Header().Set("Allow", strings.Join(methods, ", "))
	}
	writeJSONError(w, http.StatusMethodNotAllowed, APIError{
		Code:    "method_not_allowed",
		Message: "method not allowed",
	})
}

// writeJSONError writes one structured error envelope.
func writeJSONError(w http.ResponseWriter, statusCode int, apiErr APIError) {
	writeJSON(w, statusCode, ErrorEnvelope{Error: apiErr})
}

// writeJSON writes one JSON response envelope.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":{"code":"encode_error","message":"%s"}}`, err.Error()), http.StatusInternalServerError)
	}
}

// decodeJSONBody decodes one required JSON request body with strict shape checks.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(common.ErrInvalidRequest, err))
	}
	// Trailing payloads fail closed.
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", common.ErrInvalidRequest)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	default:
		return nil
	}
}
