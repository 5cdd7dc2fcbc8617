package outbox

import (
	"context"
	"net/http"

	"github.com/2beens/dailyfit/internal/auth"
	"github.com/2beens/dailyfit/internal/telemetry/tracing"
	"github.com/2beens/dailyfit/pkg"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type syncer interface {
	Pending(ctx context.Context, userID uuid.UUID) ([]PendingSession, error)
	Sync(ctx context.Context, userID uuid.UUID) (SyncResult, error)
}

type Handler struct {
	syncer syncer
}

func NewHandler(syncer syncer) *Handler {
	return &Handler{
		syncer: syncer,
	}
}

func (h *Handler) HandlePending(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.outbox.pending")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	pending, err := h.syncer.Pending(ctx, userID)
	if err != nil {
		log.Errorf("list pending sessions: %s", err)
		http.Error(w, "failed to get pending sessions", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, pending)
}

func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.outbox.sync")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	result, err := h.syncer.Sync(ctx, userID)
	if err != nil {
		log.Errorf("sync pending sessions: %s", err)
		http.Error(w, "failed to sync pending sessions", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, result)
}
