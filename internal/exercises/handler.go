package exercises

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/2beens/dailyfit/internal/auth"
	"github.com/2beens/dailyfit/internal/repo"
	"github.com/2beens/dailyfit/internal/telemetry/tracing"
	"github.com/2beens/dailyfit/pkg"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.list")
	defer span.End()

	// anonymous callers only see the shared catalog
	userID, _ := auth.UserIDFromContext(ctx)

	query := r.URL.Query()
	list, err := handler.service.List(ctx, ListParams{
		UserID:      userID,
		MuscleGroup: query.Get("muscleGroup"),
		Pattern:     query.Get("pattern"),
		EquipmentID: query.Get("equipment"),
		Query:       query.Get("q"),
	})
	if err != nil {
		if msg, ok := badRequestMessage(err); ok {
			http.Error(w, msg, http.StatusBadRequest)
			return
		}
		log.Errorf("list exercises: %s", err)
		http.Error(w, "failed to load exercises", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, list)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.get")
	defer span.End()

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, invalid exercise id", http.StatusBadRequest)
		return
	}

	userID, _ := auth.UserIDFromContext(ctx)
	e, err := handler.service.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			http.Error(w, "exercise not found", http.StatusNotFound)
			return
		}
		log.Errorf("get exercise %s: %s", id, err)
		http.Error(w, "failed to load exercise", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, e)
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.add")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var params ExerciseParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		log.Errorf("add exercise, unmarshal json params: %s", err)
		http.Error(w, "failed to add exercise", http.StatusBadRequest)
		return
	}

	created, err := handler.service.CreateCustom(ctx, userID, params)
	if err != nil {
		if msg, ok := badRequestMessage(err); ok {
			http.Error(w, msg, http.StatusBadRequest)
			return
		}
		log.Errorf("add exercise: %s", err)
		http.Error(w, "failed to add exercise", http.StatusInternalServerError)
		return
	}

	log.Debugf("new custom exercise added: %s [%s]", created.Name, created.ID)
	pkg.WriteJSONResponse(w, created, http.StatusCreated)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.update")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, invalid exercise id", http.StatusBadRequest)
		return
	}

	var params ExerciseParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		log.Errorf("update exercise, unmarshal json params: %s", err)
		http.Error(w, "failed to update exercise", http.StatusBadRequest)
		return
	}

	updated, err := handler.service.UpdateCustom(ctx, userID, id, params)
	if err != nil {
		handler.writeWriteError(w, "update", id, err)
		return
	}

	pkg.WriteJSONResponseOK(w, updated)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.delete")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, invalid exercise id", http.StatusBadRequest)
		return
	}

	if err := handler.service.DeleteCustom(ctx, userID, id); err != nil {
		handler.writeWriteError(w, "delete", id, err)
		return
	}

	pkg.WriteTextResponseOK(w, "deleted")
}

type PatternInfo struct {
	Pattern     MovementPattern `json:"pattern"`
	DisplayName string          `json:"displayName"`
	Description string          `json:"description"`
}

func (handler *Handler) HandlePatterns(w http.ResponseWriter, _ *http.Request) {
	patterns := AllMovementPatterns()
	infos := make([]PatternInfo, 0, len(patterns))
	for _, p := range patterns {
		infos = append(infos, PatternInfo{
			Pattern:     p,
			DisplayName: p.DisplayName(),
			Description: p.Description(),
		})
	}
	pkg.WriteJSONResponseOK(w, infos)
}

func (handler *Handler) HandleMuscleGroups(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("grouped") == "true" {
		pkg.WriteJSONResponseOK(w, GroupedByCategory())
		return
	}
	pkg.WriteJSONResponseOK(w, MuscleGroups())
}

type CategoryInfo struct {
	Category      MuscleCategory `json:"category"`
	DisplayName   string         `json:"displayName"`
	Subcategories []string       `json:"subcategories"`
}

func (handler *Handler) HandleMuscleCategories(w http.ResponseWriter, _ *http.Request) {
	categories := AllCategories()
	infos := make([]CategoryInfo, 0, len(categories))
	for _, c := range categories {
		infos = append(infos, CategoryInfo{
			Category:      c,
			DisplayName:   c.DisplayName(),
			Subcategories: c.Subcategories(),
		})
	}
	pkg.WriteJSONResponseOK(w, infos)
}

func (handler *Handler) writeWriteError(w http.ResponseWriter, op string, id uuid.UUID, err error) {
	if msg, ok := badRequestMessage(err); ok {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	switch {
	case errors.Is(err, repo.ErrNotFound):
		http.Error(w, "exercise not found", http.StatusNotFound)
	case errors.Is(err, ErrNotOwner):
		http.Error(w, "only custom exercises you created can be changed", http.StatusForbidden)
	default:
		log.Errorf("%s exercise %s: %s", op, id, err)
		http.Error(w, "failed to "+op+" exercise", http.StatusInternalServerError)
	}
}

func badRequestMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, ErrInvalidMuscleGroup):
		return "error, invalid muscle group", true
	case errors.Is(err, ErrInvalidPattern):
		return "error, invalid movement pattern", true
	case errors.Is(err, ErrInvalidEquipment):
		return "error, invalid equipment", true
	case errors.Is(err, ErrNameRequired):
		return "error, name is required", true
	}
	return "", false
}
