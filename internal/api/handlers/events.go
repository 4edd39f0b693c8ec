package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/cloo-solutions/semantrics/internal/api"
	"github.com/cloo-solutions/semantrics/internal/api/middleware"
	"github.com/cloo-solutions/semantrics/internal/collector"
	"github.com/cloo-solutions/semantrics/internal/domain"
	"github.com/cloo-solutions/semantrics/internal/logger"
	"github.com/cloo-solutions/semantrics/internal/pagination"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

var (
	errMissingUserID    = domain.NewDomainError(domain.ErrCodeValidation, "userId is required")
	errMissingQuery     = domain.NewDomainError(domain.ErrCodeValidation, "query is required")
	errMissingEventName = domain.NewDomainError(domain.ErrCodeValidation, "eventName is required")
	errInvalidRow       = domain.NewDomainError(domain.ErrCodeValidation, "resultRow must not be negative")
	errInvalidKind      = domain.NewDomainError(domain.ErrCodeValidation, "unknown event kind")
)

// EventStore persists events accepted by the collector.
type EventStore interface {
	Append(ctx context.Context, ev collector.Received) (collector.Received, error)
	List(ctx context.Context, f collector.Filter) ([]collector.Received, error)
	Stats(ctx context.Context) collector.Stats
}

// EventHandler serves the collector endpoints.
type EventHandler struct {
	store  EventStore
	keys   map[string]struct{}
	logger logger.Logger
}

// NewEventHandler returns a handler backed by store. When allowedKeys is
// non-empty, events carrying any other interface key are rejected.
func NewEventHandler(store EventStore, log logger.Logger, allowedKeys ...string) *EventHandler {
	if log == nil {
		log = logger.NewNop()
	}
	keys := make(map[string]struct{}, len(allowedKeys))
	for _, k := range allowedKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys[k] = struct{}{}
		}
	}
	return &EventHandler{store: store, keys: keys, logger: log}
}

// Ingest returns the POST handler for one event kind.
func (h *EventHandler) Ingest(kind domain.EventKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			api.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}

		ev, err := decodeEvent(kind, raw)
		if err != nil {
			var de *domain.DomainError
			if !errors.As(err, &de) {
				api.Error(w, http.StatusBadRequest, "invalid request body")
				return
			}
			api.HandleError(w, err)
			return
		}

		if !h.allowed(ev.InterfaceKey) {
			api.Error(w, http.StatusForbidden, "unknown interface key")
			return
		}

		ev.RequestID = middleware.GetRequestID(r.Context())
		saved, err := h.store.Append(r.Context(), ev)
		if err != nil {
			h.logger.Error("store event", logger.String("kind", string(kind)), logger.Error(err))
			api.Error(w, http.StatusInternalServerError, "failed to store event")
			return
		}

		h.logger.Info("event received",
			logger.String("kind", string(kind)),
			logger.String("id", saved.ID),
			logger.String("user_id", saved.UserID),
			logger.String("query", saved.Query),
		)
		api.Success(w, http.StatusAccepted, map[string]string{"id": saved.ID})
	}
}

// List pages through stored events oldest first. Query parameters: kind,
// user_id, limit (default 100) and cursor from the previous page.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	kind := domain.EventKind(q.Get("kind"))
	if kind != "" && !slices.Contains(domain.AllEventKinds, kind) {
		api.HandleError(w, errInvalidKind)
		return
	}

	limit := defaultListLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			api.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	after, err := pagination.Decode(q.Get("cursor"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := h.store.List(r.Context(), collector.Filter{
		Kind:   kind,
		UserID: q.Get("user_id"),
		After:  after,
		Limit:  limit + 1,
	})
	if err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	api.Success(w, http.StatusOK, pagination.NewPage(events, limit, collector.CursorOf))
}

// Stats returns per-kind counts of stored events.
func (h *EventHandler) Stats(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, h.store.Stats(r.Context()))
}

func (h *EventHandler) allowed(key string) bool {
	if len(h.keys) == 0 {
		return true
	}
	_, ok := h.keys[key]
	return ok
}

// decodeEvent validates raw as an event of the given kind and returns it in
// stored form.
func decodeEvent(kind domain.EventKind, raw []byte) (collector.Received, error) {
	out := collector.Received{Kind: kind, Payload: json.RawMessage(raw)}

	var (
		key, user string
		err       error
	)
	switch kind {
	case domain.EventQuery:
		var ev domain.QueryEvent
		if err = json.Unmarshal(raw, &ev); err == nil && strings.TrimSpace(ev.Query) == "" {
			err = errMissingQuery
		}
		key, user, out.Query = ev.InterfaceKey, ev.UserID, ev.Query
	case domain.EventResults:
		var ev domain.ResultsEvent
		if err = json.Unmarshal(raw, &ev); err == nil && strings.TrimSpace(ev.Query) == "" {
			err = errMissingQuery
		}
		key, user, out.Query = ev.InterfaceKey, ev.UserID, ev.Query
	case domain.EventInteraction:
		var ev domain.InteractionEvent
		if err = json.Unmarshal(raw, &ev); err == nil && ev.ResultRank < 0 {
			err = errInvalidRow
		}
		key, user, out.Query = ev.InterfaceKey, ev.UserID, ev.Query
	case domain.EventConversion:
		var ev domain.ConversionEvent
		if err = json.Unmarshal(raw, &ev); err == nil && strings.TrimSpace(ev.EventName) == "" {
			err = errMissingEventName
		}
		key, user = ev.InterfaceKey, ev.UserID
	default:
		return out, errInvalidKind
	}
	if err != nil {
		return out, err
	}

	if strings.TrimSpace(key) == "" {
		return out, domain.ErrMissingInterfaceKey
	}
	if strings.TrimSpace(user) == "" {
		return out, errMissingUserID
	}
	out.InterfaceKey, out.UserID = key, user
	return out, nil
}
