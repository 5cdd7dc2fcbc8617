package export

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/2beens/dailyfit/internal/auth"
	"github.com/2beens/dailyfit/internal/telemetry/tracing"
	"github.com/2beens/dailyfit/internal/workout"
	"github.com/2beens/dailyfit/pkg"

	log "github.com/sirupsen/logrus"
)

type sessionLister interface {
	ListSessions(ctx context.Context, params workout.ListParams) ([]workout.Session, error)
}

type Handler struct {
	sessions sessionLister
}

func NewHandler(sessions sessionLister) *Handler {
	return &Handler{
		sessions: sessions,
	}
}

// HandleExport streams the finished sessions of the user as an xlsx workbook.
// Optional query params from and to take dates (2006-01-02).
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.export.xlsx")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	params := workout.ListParams{UserID: userID}
	query := r.URL.Query()
	if from := query.Get("from"); from != "" {
		t, err := time.Parse(time.DateOnly, from)
		if err != nil {
			http.Error(w, "invalid from date", http.StatusBadRequest)
			return
		}
		params.From = &t
	}
	if to := query.Get("to"); to != "" {
		t, err := time.Parse(time.DateOnly, to)
		if err != nil {
			http.Error(w, "invalid to date", http.StatusBadRequest)
			return
		}
		// include the whole last day
		endOfDay := t.Add(24*time.Hour - time.Nanosecond)
		params.To = &endOfDay
	}

	sessions, err := h.sessions.ListSessions(ctx, params)
	if err != nil {
		log.Errorf("export sessions: %s", err)
		http.Error(w, "failed to get workout sessions", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := WriteSessionsXLSX(&buf, sessions); err != nil {
		log.Errorf("export sessions, write xlsx: %s", err)
		http.Error(w, "failed to export workout sessions", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("dailyfit-workouts-%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	pkg.WriteResponseBytesOK(w, pkg.ContentType.XLSX, buf.Bytes())
}
