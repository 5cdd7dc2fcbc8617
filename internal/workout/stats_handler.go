package workout

import (
	"net/http"
	"time"

	"github.com/2beens/dailyfit/internal/auth"
	"github.com/2beens/dailyfit/internal/telemetry/tracing"
	"github.com/2beens/dailyfit/pkg"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type StatsHandler struct {
	analyzer *Analyzer
}

func NewStatsHandler(analyzer *Analyzer) *StatsHandler {
	return &StatsHandler{
		analyzer: analyzer,
	}
}

// HandleExerciseHistory returns per day averages of one exercise
func (handler *StatsHandler) HandleExerciseHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.stats.exercise_history")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	exerciseID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid exercise id", http.StatusBadRequest)
		return
	}

	params, ok := statsParams(w, r, userID)
	if !ok {
		return
	}

	history, err := handler.analyzer.ExerciseHistory(ctx, params, exerciseID)
	if err != nil {
		log.Errorf("failed to get exercise history: %s", err)
		http.Error(w, "failed to get exercise history", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, history)
}

// HandleAvgRest returns the average rest between sets, optionally for one exercise
func (handler *StatsHandler) HandleAvgRest(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.stats.avg_rest")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var exerciseID uuid.UUID
	if idStr := r.URL.Query().Get("exercise_id"); idStr != "" {
		var err error
		if exerciseID, err = uuid.Parse(idStr); err != nil {
			http.Error(w, "invalid exercise_id", http.StatusBadRequest)
			return
		}
	}

	params, ok := statsParams(w, r, userID)
	if !ok {
		return
	}

	avgRest, err := handler.analyzer.AvgRest(ctx, params, exerciseID)
	if err != nil {
		log.Errorf("failed to get average rest: %s", err)
		http.Error(w, "failed to get average rest", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, avgRest)
}

func (handler *StatsHandler) HandleExercisePercentages(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.stats.exercise_percentages")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var muscleGroupID uuid.UUID
	if idStr := r.URL.Query().Get("muscle_group_id"); idStr != "" {
		var err error
		if muscleGroupID, err = uuid.Parse(idStr); err != nil {
			http.Error(w, "invalid muscle_group_id", http.StatusBadRequest)
			return
		}
	}

	params, ok := statsParams(w, r, userID)
	if !ok {
		return
	}

	percentages, err := handler.analyzer.ExercisePercentages(ctx, params, muscleGroupID)
	if err != nil {
		log.Errorf("failed to get exercise percentages: %s", err)
		http.Error(w, "failed to get exercise percentages", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, percentages)
}

// statsParams reads the optional date_from / date_to (YYYY-MM-DD, UTC) range.
// date_to covers the whole day.
func statsParams(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (ListParams, bool) {
	params := ListParams{UserID: userID}

	if dateFromStr := r.URL.Query().Get("date_from"); dateFromStr != "" {
		dateFrom, err := time.Parse("2006-01-02", dateFromStr)
		if err != nil {
			http.Error(w, "invalid date_from format (expected YYYY-MM-DD)", http.StatusBadRequest)
			return ListParams{}, false
		}
		params.From = &dateFrom
	}

	if dateToStr := r.URL.Query().Get("date_to"); dateToStr != "" {
		dateTo, err := time.Parse("2006-01-02", dateToStr)
		if err != nil {
			http.Error(w, "invalid date_to format (expected YYYY-MM-DD)", http.StatusBadRequest)
			return ListParams{}, false
		}
		dateTo = time.Date(dateTo.Year(), dateTo.Month(), dateTo.Day(), 23, 59, 59, 999999999, time.UTC)
		params.To = &dateTo
	}

	if params.From != nil && params.To != nil && params.To.Before(*params.From) {
		http.Error(w, "date_to before date_from", http.StatusBadRequest)
		return ListParams{}, false
	}

	return params, true
}
