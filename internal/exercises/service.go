package exercises

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/2beens/dailyfit/internal/equipment"
	"github.com/2beens/dailyfit/internal/repo"
	"github.com/2beens/dailyfit/internal/telemetry/tracing"

	"github.com/coocood/freecache"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	megabyte               = 1024 * 1024
	DefaultCacheSizeMB     = 8
	DefaultCacheTTLSeconds = 60 * 10
)

var (
	ErrInvalidMuscleGroup = errors.New("invalid muscle group")
	ErrInvalidPattern     = errors.New("invalid movement pattern")
	ErrInvalidEquipment   = errors.New("invalid equipment")
	ErrNotOwner           = errors.New("exercise belongs to another user")
	ErrNameRequired       = errors.New("exercise name is required")
)

//go:generate mockgen -source=$GOFILE -destination=service_mocks_test.go -package=exercises_test

type exercisesRepo interface {
	Create(ctx context.Context, e Exercise) (Exercise, error)
	Read(ctx context.Context, id uuid.UUID) (Exercise, error)
	Update(ctx context.Context, e Exercise) (Exercise, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]Exercise, error)
}

type equipmentReader interface {
	Read(ctx context.Context, id uuid.UUID) (equipment.Equipment, error)
}

type ListParams struct {
	UserID      uuid.UUID
	MuscleGroup string // name or id
	Pattern     string
	EquipmentID string
	Query       string
}

func (p ListParams) cacheKey() string {
	return fmt.Sprintf("list::%s::%s::%s::%s::%s",
		p.UserID, strings.ToLower(p.MuscleGroup), p.Pattern, p.EquipmentID, strings.ToLower(p.Query))
}

// Service serves the exercise catalog. Filtered list results are kept in a freecache
// that every write clears.
type Service struct {
	repo            exercisesRepo
	equipment       equipmentReader
	cache           *freecache.Cache
	cacheTTLSeconds int
}

func NewService(repo exercisesRepo, equipment equipmentReader, cacheSizeMB, cacheTTLSeconds int) *Service {
	if cacheSizeMB <= 0 {
		cacheSizeMB = DefaultCacheSizeMB
	}
	if cacheTTLSeconds <= 0 {
		cacheTTLSeconds = DefaultCacheTTLSeconds
	}
	return &Service{
		repo:            repo,
		equipment:       equipment,
		cache:           freecache.NewCache(cacheSizeMB * megabyte),
		cacheTTLSeconds: cacheTTLSeconds,
	}
}

func (s *Service) List(ctx context.Context, params ListParams) (_ []Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.exercises.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	cacheKey := []byte(params.cacheKey())
	if cached, err := s.cache.Get(cacheKey); err == nil {
		var list []Exercise
		if err := json.Unmarshal(cached, &list); err == nil {
			log.Tracef("exercises list [%s] served from cache", cacheKey)
			return list, nil
		} else {
			log.Errorf("unmarshal cached exercises list [%s]: %s", cacheKey, err)
		}
	}

	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}

	list := filter(all, func(e Exercise) bool {
		return e.VisibleTo(params.UserID)
	})

	if params.MuscleGroup != "" {
		mg, ok := resolveMuscleGroup(params.MuscleGroup)
		if !ok {
			return nil, ErrInvalidMuscleGroup
		}
		list = FilterByMuscleGroup(list, mg.ID)
	}
	if params.Pattern != "" {
		pattern := MovementPattern(params.Pattern)
		if !pattern.IsValid() {
			return nil, ErrInvalidPattern
		}
		list = FilterByMovementPattern(list, pattern)
	}
	if params.EquipmentID != "" {
		equipmentID, err := uuid.Parse(params.EquipmentID)
		if err != nil {
			return nil, ErrInvalidEquipment
		}
		list = FilterByEquipment(list, equipmentID)
	}
	list = Search(list, params.Query)

	if listJson, err := json.Marshal(list); err != nil {
		log.Errorf("marshal exercises list for cache: %s", err)
	} else if err := s.cache.Set(cacheKey, listJson, s.cacheTTLSeconds); err != nil {
		log.Errorf("set exercises list cache [%s]: %s", cacheKey, err)
	}

	return list, nil
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (Exercise, error) {
	e, err := s.repo.Read(ctx, id)
	if err != nil {
		return Exercise{}, err
	}
	if !e.VisibleTo(userID) {
		return Exercise{}, repo.ErrNotFound
	}
	return e, nil
}

type ExerciseParams struct {
	Name             string   `json:"name"`
	Instructions     *string  `json:"instructions"`
	VideoURL         *string  `json:"videoUrl"`
	MovementPattern  *string  `json:"movementPattern"`
	IsPublic         bool     `json:"isPublic"`
	PrimaryMuscles   []string `json:"primaryMuscles"`
	SecondaryMuscles []string `json:"secondaryMuscles"`
	EquipmentIDs     []string `json:"equipmentIds"`
}

// CreateCustom adds a user-owned exercise built from params.
func (s *Service) CreateCustom(ctx context.Context, userID uuid.UUID, params ExerciseParams) (Exercise, error) {
	e := Exercise{
		ID:       uuid.New(),
		UserID:   &userID,
		IsCustom: true,
	}
	if err := s.apply(ctx, &e, params); err != nil {
		return Exercise{}, err
	}

	created, err := s.repo.Create(ctx, e)
	if err != nil {
		return Exercise{}, err
	}
	s.cache.Clear()
	return created, nil
}

func (s *Service) UpdateCustom(ctx context.Context, userID, id uuid.UUID, params ExerciseParams) (Exercise, error) {
	e, err := s.owned(ctx, userID, id)
	if err != nil {
		return Exercise{}, err
	}
	if err := s.apply(ctx, &e, params); err != nil {
		return Exercise{}, err
	}

	updated, err := s.repo.Update(ctx, e)
	if err != nil {
		return Exercise{}, err
	}
	s.cache.Clear()
	return updated, nil
}

func (s *Service) DeleteCustom(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Clear()
	return nil
}

func (s *Service) CacheEntries() int64 {
	return s.cache.EntryCount()
}

func (s *Service) owned(ctx context.Context, userID, id uuid.UUID) (Exercise, error) {
	e, err := s.Get(ctx, userID, id)
	if err != nil {
		return Exercise{}, err
	}
	if e.UserID == nil || *e.UserID != userID {
		return Exercise{}, ErrNotOwner
	}
	return e, nil
}

func (s *Service) apply(ctx context.Context, e *Exercise, params ExerciseParams) error {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return ErrNameRequired
	}
	e.Name = name
	e.Instructions = params.Instructions
	e.VideoURL = params.VideoURL
	e.IsPublic = params.IsPublic

	e.MovementPattern = nil
	if params.MovementPattern != nil && *params.MovementPattern != "" {
		pattern := MovementPattern(*params.MovementPattern)
		if !pattern.IsValid() {
			return ErrInvalidPattern
		}
		e.MovementPattern = &pattern
	}

	var err error
	if e.PrimaryMuscleGroups, err = resolveMuscleGroups(params.PrimaryMuscles); err != nil {
		return err
	}
	if e.SecondaryMuscleGroups, err = resolveMuscleGroups(params.SecondaryMuscles); err != nil {
		return err
	}

	e.EquipmentOptions = make([]equipment.Equipment, 0, len(params.EquipmentIDs))
	for _, idStr := range params.EquipmentIDs {
		id, err := uuid.Parse(idStr)
		if err != nil {
			return ErrInvalidEquipment
		}
		if s.equipment == nil {
			return ErrInvalidEquipment
		}
		eq, err := s.equipment.Read(ctx, id)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrInvalidEquipment
			}
			return fmt.Errorf("read equipment %s: %w", id, err)
		}
		e.EquipmentOptions = append(e.EquipmentOptions, eq)
	}

	return nil
}

func resolveMuscleGroup(nameOrID string) (MuscleGroup, bool) {
	if id, err := uuid.Parse(nameOrID); err == nil {
		return MuscleGroupByID(id)
	}
	return MuscleGroupByName(nameOrID)
}

func resolveMuscleGroups(names []string) ([]MuscleGroup, error) {
	groups := make([]MuscleGroup, 0, len(names))
	for _, n := range names {
		mg, ok := resolveMuscleGroup(n)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidMuscleGroup, n)
		}
		groups = append(groups, mg)
	}
	return groups, nil
}
