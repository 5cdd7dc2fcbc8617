package workout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/2beens/dailyfit/internal/auth"
	"github.com/2beens/dailyfit/internal/exercises"
	"github.com/2beens/dailyfit/internal/repo"
	"github.com/2beens/dailyfit/internal/telemetry/tracing"
	"github.com/2beens/dailyfit/pkg"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=workout_test

type exerciseReader interface {
	Get(ctx context.Context, userID, id uuid.UUID) (exercises.Exercise, error)
}

type sessionsRepo interface {
	Read(ctx context.Context, id uuid.UUID) (Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListSessions(ctx context.Context, params ListParams) ([]Session, error)
	CountSessions(ctx context.Context, params ListParams) (int, error)
}

type Handler struct {
	manager   *Manager
	exercises exerciseReader
	sessions  sessionsRepo
}

func NewHandler(manager *Manager, exercises exerciseReader, sessions sessionsRepo) *Handler {
	return &Handler{
		manager:   manager,
		exercises: exercises,
		sessions:  sessions,
	}
}

type SelectExerciseRequest struct {
	ExerciseID string `json:"exerciseId"`
}

// SetRequest is the wire form of SetInput. A missing effort falls back to DefaultEffort.
type SetRequest struct {
	Reps   string `json:"reps"`
	Weight string `json:"weight"`
	Effort *int   `json:"effort"`
}

func (r SetRequest) input() SetInput {
	in := SetInput{
		Reps:   r.Reps,
		Weight: r.Weight,
		Effort: DefaultEffort,
	}
	if r.Effort != nil {
		in.Effort = *r.Effort
	}
	return in
}

type RestRequest struct {
	Seconds *int `json:"seconds"`
}

type SessionsListResponse struct {
	Sessions []Session `json:"sessions"`
	Total    int       `json:"total"`
}

func (handler *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.start")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	session, started, err := handler.manager.For(userID).Start()
	if errors.Is(err, ErrControllerClosed) {
		// evicted between lookup and start, the manager hands out a fresh one
		session, started, err = handler.manager.For(userID).Start()
	}
	if err != nil {
		writeControllerError(w, err)
		return
	}
	if !started {
		log.Debugf("workout start: user %s already has session %s", userID, session.ID)
		pkg.WriteJSONResponseOK(w, session)
		return
	}

	pkg.WriteJSONResponse(w, session, http.StatusCreated)
}

func (handler *Handler) HandleSelectExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.select_exercise")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req SelectExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("select exercise, unmarshal json params: %s", err)
		http.Error(w, "select exercise failed", http.StatusBadRequest)
		return
	}

	exerciseID, err := uuid.Parse(req.ExerciseID)
	if err != nil {
		http.Error(w, "error, invalid exercise id", http.StatusBadRequest)
		return
	}

	exercise, err := handler.exercises.Get(ctx, userID, exerciseID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			http.Error(w, "exercise not found", http.StatusNotFound)
			return
		}
		log.Errorf("select exercise, get exercise %s: %s", exerciseID, err)
		http.Error(w, "failed to load exercise", http.StatusInternalServerError)
		return
	}

	if err := handler.manager.For(userID).SelectExercise(exercise); err != nil {
		writeControllerError(w, err)
		return
	}

	pkg.WriteJSONResponseOK(w, exercise)
}

func (handler *Handler) HandleUpdateInput(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.update_input")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req SetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("update input, unmarshal json params: %s", err)
		http.Error(w, "update input failed", http.StatusBadRequest)
		return
	}

	controller := handler.manager.For(userID)
	if err := controller.UpdateInput(req.input()); err != nil {
		writeControllerError(w, err)
		return
	}

	pkg.WriteJSONResponseOK(w, controller.Snapshot())
}

func (handler *Handler) HandleAddSet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.add_set")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req SetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("add set, unmarshal json params: %s", err)
		http.Error(w, "add set failed", http.StatusBadRequest)
		return
	}

	set, err := handler.manager.For(userID).AddSetWith(req.input())
	if err != nil {
		writeControllerError(w, err)
		return
	}

	pkg.WriteJSONResponse(w, set, http.StatusCreated)
}

func (handler *Handler) HandleRemoveSet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.remove_set")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	setID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, invalid set id", http.StatusBadRequest)
		return
	}

	if err := handler.manager.For(userID).RemoveSet(setID); err != nil {
		writeControllerError(w, err)
		return
	}

	pkg.WriteTextResponseOK(w, "removed")
}

func (handler *Handler) HandleStartRest(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.start_rest")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	seconds := DefaultRestSeconds
	if r.ContentLength != 0 {
		var req RestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Errorf("start rest, unmarshal json params: %s", err)
			http.Error(w, "start rest failed", http.StatusBadRequest)
			return
		}
		if req.Seconds != nil {
			seconds = *req.Seconds
		}
	}

	controller := handler.manager.For(userID)
	if err := controller.StartRestCountdown(seconds); err != nil {
		writeControllerError(w, err)
		return
	}

	pkg.WriteJSONResponseOK(w, controller.Snapshot())
}

func (handler *Handler) HandleStopRest(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.stop_rest")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	controller := handler.manager.For(userID)
	controller.StopRestCountdown()

	pkg.WriteJSONResponseOK(w, controller.Snapshot())
}

func (handler *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.snapshot")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	pkg.WriteJSONResponseOK(w, handler.manager.For(userID).Snapshot())
}

func (handler *Handler) HandleUpdateDetails(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.update_details")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var details SessionDetails
	if err := json.NewDecoder(r.Body).Decode(&details); err != nil {
		log.Errorf("update session details, unmarshal json params: %s", err)
		http.Error(w, "update session details failed", http.StatusBadRequest)
		return
	}

	controller := handler.manager.For(userID)
	if err := controller.UpdateSessionDetails(details); err != nil {
		writeControllerError(w, err)
		return
	}

	pkg.WriteJSONResponseOK(w, controller.Snapshot())
}

func (handler *Handler) HandleFinish(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.finish")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	session, err := handler.manager.For(userID).Finish(ctx)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotActive):
			writeControllerError(w, err)
		case errors.Is(err, ErrSessionQueued):
			log.Warnf("workout finish: %s", err)
			pkg.WriteJSONResponse(w, session, http.StatusAccepted)
		case errors.Is(err, ErrMirrorFailed):
			log.Warnf("workout finish: %s", err)
			pkg.WriteJSONResponseOK(w, session)
		default:
			log.Errorf("workout finish: %s", err)
			http.Error(w, "workout finished but could not be saved", http.StatusInternalServerError)
		}
		return
	}

	log.Debugf("workout session %s of user %s finished with %d sets", session.ID, userID, len(session.ExerciseSets))
	pkg.WriteJSONResponseOK(w, session)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.list")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	page, err := strconv.Atoi(vars["page"])
	if err != nil {
		log.Errorf("handle get sessions page, from <page> param: %s", err)
		http.Error(w, "parse form error, parameter <page>", http.StatusBadRequest)
		return
	}
	size, err := strconv.Atoi(vars["size"])
	if err != nil {
		log.Errorf("handle get sessions page, from <size> param: %s", err)
		http.Error(w, "parse form error, parameter <size>", http.StatusBadRequest)
		return
	}
	if page < 1 {
		http.Error(w, "invalid page (has to be non-zero value)", http.StatusBadRequest)
		return
	}
	if size < 1 {
		http.Error(w, "invalid size (has to be non-zero value)", http.StatusBadRequest)
		return
	}

	params := ListParams{
		UserID:       userID,
		ExerciseName: r.URL.Query().Get("exercise"),
		Page:         page,
		Size:         size,
	}
	sessions, err := handler.sessions.ListSessions(ctx, params)
	if err != nil {
		log.Errorf("list sessions error: %s", err)
		http.Error(w, "failed to get workout sessions", http.StatusInternalServerError)
		return
	}
	total, err := handler.sessions.CountSessions(ctx, params)
	if err != nil {
		log.Errorf("count sessions error: %s", err)
		http.Error(w, "failed to get workout sessions", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, SessionsListResponse{
		Sessions: sessions,
		Total:    total,
	})
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.get")
	defer span.End()

	session, ok := handler.ownedSession(ctx, w, r)
	if !ok {
		return
	}

	pkg.WriteJSONResponseOK(w, session)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.delete")
	defer span.End()

	session, ok := handler.ownedSession(ctx, w, r)
	if !ok {
		return
	}

	if err := handler.sessions.Delete(ctx, session.ID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			http.Error(w, "workout session not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete session %s: %s", session.ID, err)
		http.Error(w, "failed to delete workout session", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, "deleted")
}

// ownedSession loads the session from the path and writes the error response itself.
// Sessions of other users are reported as missing.
func (handler *Handler) ownedSession(ctx context.Context, w http.ResponseWriter, r *http.Request) (Session, bool) {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return Session{}, false
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, invalid workout session id", http.StatusBadRequest)
		return Session{}, false
	}

	session, err := handler.sessions.Read(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			http.Error(w, "workout session not found", http.StatusNotFound)
			return Session{}, false
		}
		log.Errorf("read session %s: %s", id, err)
		http.Error(w, "failed to load workout session", http.StatusInternalServerError)
		return Session{}, false
	}
	if session.UserID != userID {
		http.Error(w, "workout session not found", http.StatusNotFound)
		return Session{}, false
	}

	return session, true
}

func writeControllerError(w http.ResponseWriter, err error) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve) && !errors.Is(err, ErrNotActive):
		http.Error(w, ve.Message, http.StatusBadRequest)
	case errors.Is(err, ErrNotActive):
		http.Error(w, UserMessage(err), http.StatusConflict)
	case errors.Is(err, ErrControllerClosed):
		http.Error(w, "workout session closed, try again", http.StatusServiceUnavailable)
	case errors.Is(err, ErrSetNotFound):
		http.Error(w, "set not found", http.StatusNotFound)
	default:
		log.Errorf("workout controller: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
