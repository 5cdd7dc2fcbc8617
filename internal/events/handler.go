package events

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/dailyfit/internal/auth"
	"github.com/2beens/dailyfit/internal/telemetry/tracing"
	"github.com/2beens/dailyfit/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=events_test

type service interface {
	List(ctx context.Context, params ListParams) ([]*Event, error)
	Count(ctx context.Context, params EventParams) (int, error)
}

type Handler struct {
	service service
}

func NewHandler(service service) *Handler {
	return &Handler{
		service: service,
	}
}

type EventsListResponse struct {
	Events []*Event `json:"events"`
	Total  int      `json:"total"`
}

// HandleList lists the training log of the signed in user, newest first. Optional
// query params: type, from and to (RFC 3339).
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.events.list")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	page, err := strconv.Atoi(vars["page"])
	if err != nil || page < 1 {
		http.Error(w, "parse form error, parameter <page>", http.StatusBadRequest)
		return
	}
	size, err := strconv.Atoi(vars["size"])
	if err != nil || size < 1 {
		http.Error(w, "parse form error, parameter <size>", http.StatusBadRequest)
		return
	}

	params := EventParams{UserID: userID}
	query := r.URL.Query()
	if typeStr := query.Get("type"); typeStr != "" {
		eventType := EventType(typeStr)
		if !eventType.IsValid() {
			http.Error(w, "invalid event type", http.StatusBadRequest)
			return
		}
		params.Type = &eventType
	}
	if params.From, err = parseTimeParam(query.Get("from")); err != nil {
		http.Error(w, "invalid from time", http.StatusBadRequest)
		return
	}
	if params.To, err = parseTimeParam(query.Get("to")); err != nil {
		http.Error(w, "invalid to time", http.StatusBadRequest)
		return
	}

	events, err := h.service.List(ctx, ListParams{
		EventParams: params,
		Page:        page,
		Size:        size,
	})
	if err != nil {
		log.Errorf("list events: %s", err)
		http.Error(w, "failed to get events", http.StatusInternalServerError)
		return
	}

	total, err := h.service.Count(ctx, params)
	if err != nil {
		log.Errorf("count events: %s", err)
		http.Error(w, "failed to get events", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, EventsListResponse{
		Events: events,
		Total:  total,
	})
}

func parseTimeParam(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
