package equipment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/2beens/dailyfit/internal/auth"
	"github.com/2beens/dailyfit/internal/repo"
	"github.com/2beens/dailyfit/internal/telemetry/tracing"
	"github.com/2beens/dailyfit/pkg"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=equipment_test

type equipmentRepo interface {
	Create(ctx context.Context, e Equipment) (Equipment, error)
	Read(ctx context.Context, id uuid.UUID) (Equipment, error)
	Update(ctx context.Context, e Equipment) (Equipment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]Equipment, error)
}

type Handler struct {
	repo equipmentRepo
}

func NewHandler(repo equipmentRepo) *Handler {
	return &Handler{
		repo: repo,
	}
}

type equipmentRequest struct {
	Name           string            `json:"name"`
	Type           Type              `json:"type"`
	Specifications map[string]string `json:"specifications"`
	IsAvailable    *bool             `json:"isAvailable"`
	GymLocation    *string           `json:"gymLocation"`
}

func (req equipmentRequest) validate() string {
	if strings.TrimSpace(req.Name) == "" {
		return "error, name is required"
	}
	if !req.Type.IsValid() {
		return "error, invalid equipment type"
	}
	return ""
}

type TypeInfo struct {
	Type        Type   `json:"type"`
	DisplayName string `json:"displayName"`
}

func (handler *Handler) HandleTypes(w http.ResponseWriter, _ *http.Request) {
	types := AllTypes()
	infos := make([]TypeInfo, 0, len(types))
	for _, t := range types {
		infos = append(infos, TypeInfo{Type: t, DisplayName: t.DisplayName()})
	}
	pkg.WriteJSONResponseOK(w, infos)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.equipment.list")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	list, err := handler.repo.ListForUser(ctx, userID)
	if err != nil {
		log.Errorf("list equipment: %s", err)
		http.Error(w, "failed to load equipment", http.StatusInternalServerError)
		return
	}

	if typeParam := r.URL.Query().Get("type"); typeParam != "" {
		t := Type(typeParam)
		if !t.IsValid() {
			http.Error(w, "error, invalid equipment type", http.StatusBadRequest)
			return
		}
		list = FilterByType(list, t)
	}

	if r.URL.Query().Get("grouped") == "true" {
		pkg.WriteJSONResponseOK(w, GroupByType(list))
		return
	}

	if list == nil {
		list = []Equipment{}
	}
	pkg.WriteJSONResponseOK(w, list)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.equipment.get")
	defer span.End()

	e, status, msg := handler.ownedOrVisible(ctx, r, false)
	if status != http.StatusOK {
		http.Error(w, msg, status)
		return
	}
	pkg.WriteJSONResponseOK(w, e)
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.equipment.add")
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

	var req equipmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("add equipment, unmarshal json params: %s", err)
		http.Error(w, "failed to add equipment", http.StatusBadRequest)
		return
	}
	if msg := req.validate(); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	e := New(userID, strings.TrimSpace(req.Name), req.Type, req.Specifications)
	if req.IsAvailable != nil {
		e.IsAvailable = *req.IsAvailable
	}
	e.GymLocation = req.GymLocation

	created, err := handler.repo.Create(ctx, e)
	if err != nil {
		log.Errorf("add equipment: %s", err)
		http.Error(w, "failed to add equipment", http.StatusInternalServerError)
		return
	}

	log.Debugf("new equipment added: %s [%s]", created.Name, created.ID)
	pkg.WriteJSONResponse(w, created, http.StatusCreated)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.equipment.update")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	existing, status, msg := handler.ownedOrVisible(ctx, r, true)
	if status != http.StatusOK {
		http.Error(w, msg, status)
		return
	}

	var req equipmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("update equipment, unmarshal json params: %s", err)
		http.Error(w, "failed to update equipment", http.StatusBadRequest)
		return
	}
	if msg := req.validate(); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	existing.Name = strings.TrimSpace(req.Name)
	existing.Type = req.Type
	existing.Specifications = req.Specifications
	existing.GymLocation = req.GymLocation
	if req.IsAvailable != nil {
		existing.IsAvailable = *req.IsAvailable
	}

	updated, err := handler.repo.Update(ctx, existing)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			http.Error(w, "equipment not found", http.StatusNotFound)
			return
		}
		log.Errorf("update equipment: %s", err)
		http.Error(w, "failed to update equipment", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, updated)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.equipment.delete")
	defer span.End()

	e, status, msg := handler.ownedOrVisible(ctx, r, true)
	if status != http.StatusOK {
		http.Error(w, msg, status)
		return
	}

	if err := handler.repo.Delete(ctx, e.ID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			http.Error(w, "equipment not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete equipment %s: %s", e.ID, err)
		http.Error(w, "failed to delete equipment", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, "deleted")
}

// ownedOrVisible loads the equipment from the {id} path var. With mustOwn, shared
// records are rejected since only their owner may change them.
func (handler *Handler) ownedOrVisible(ctx context.Context, r *http.Request, mustOwn bool) (Equipment, int, string) {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return Equipment{}, http.StatusUnauthorized, "no can do"
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return Equipment{}, http.StatusBadRequest, "error, invalid equipment id"
	}

	e, err := handler.repo.Read(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return Equipment{}, http.StatusNotFound, "equipment not found"
		}
		log.Errorf("get equipment %s: %s", id, err)
		return Equipment{}, http.StatusInternalServerError, "failed to load equipment"
	}

	if !e.VisibleTo(userID) {
		return Equipment{}, http.StatusNotFound, "equipment not found"
	}
	if mustOwn && e.UserID != userID {
		return Equipment{}, http.StatusForbidden, "shared equipment cannot be changed"
	}

	return e, http.StatusOK, ""
}
