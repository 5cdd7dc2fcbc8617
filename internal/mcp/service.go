package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/2beens/dailyfit/internal/auth"
	"github.com/2beens/dailyfit/internal/exercises"
	"github.com/2beens/dailyfit/internal/repo"
	"github.com/2beens/dailyfit/internal/workout"

	"github.com/google/uuid"
)

var ErrUnknownUser = errors.New("unknown user")

type SessionsRepo interface {
	ListSessions(ctx context.Context, params workout.ListParams) ([]workout.Session, error)
}

type UsersRepo interface {
	ByEmail(ctx context.Context, email string) (auth.User, error)
}

type exerciseCatalog interface {
	List(ctx context.Context, params exercises.ListParams) ([]exercises.Exercise, error)
}

// contextService provides dailyfit context data (schema, sessions, catalog).
// Used by Handler for testability.
type contextService interface {
	GetSchema(ctx context.Context) (string, error)
	ListSessions(ctx context.Context, params SessionsParams) ([]SessionSummary, error)
	GetExerciseCatalog(ctx context.Context, muscleGroup, pattern string) ([]CatalogEntry, error)
	GetMuscleGroups() map[exercises.MuscleCategory][]exercises.MuscleGroup
}

type SessionsParams struct {
	UserEmail    string
	From         time.Time
	To           time.Time
	ExerciseName string
}

type SessionSummary struct {
	ID             uuid.UUID                    `json:"id"`
	Date           string                       `json:"date"`
	Duration       string                       `json:"duration,omitempty"`
	TotalVolumeKg  float64                      `json:"total_volume_kg"`
	Sets           int                          `json:"sets"`
	Exercises      []string                     `json:"exercises"`
	MuscleGroups   []string                     `json:"muscle_groups"`
	Mobility       *int                         `json:"pre_workout_mobility,omitempty"`
	Soreness       *int                         `json:"post_workout_soreness,omitempty"`
	Notes          *string                      `json:"notes,omitempty"`
	SetsByExercise map[string][]SetSummaryEntry `json:"sets_by_exercise"`
}

type SetSummaryEntry struct {
	SetNumber int      `json:"set_number"`
	Reps      *int     `json:"reps,omitempty"`
	WeightKg  *float64 `json:"weight_kg,omitempty"`
	Effort    *int     `json:"effort,omitempty"`
	RestSec   *int     `json:"rest_sec,omitempty"`
}

type CatalogEntry struct {
	Name            string   `json:"name"`
	MovementPattern string   `json:"movement_pattern,omitempty"`
	PrimaryMuscles  []string `json:"primary_muscles"`
	Secondary       []string `json:"secondary_muscles,omitempty"`
	Instructions    string   `json:"instructions,omitempty"`
}

// ContextService holds dependencies and implements the dailyfit context business logic.
type ContextService struct {
	schema   SchemaRepo
	sessions SessionsRepo
	users    UsersRepo
	catalog  exerciseCatalog
}

func NewContextService(schemaRepo SchemaRepo, sessions SessionsRepo, users UsersRepo, catalog exerciseCatalog) *ContextService {
	return &ContextService{
		schema:   schemaRepo,
		sessions: sessions,
		users:    users,
		catalog:  catalog,
	}
}

// GetSchema returns the DB schema (table names, columns, types) for the workout tables.
func (s *ContextService) GetSchema(ctx context.Context) (string, error) {
	cols, err := s.schema.GetDailyfitColumns(ctx)
	if err != nil {
		return "", err
	}
	return formatSchema(cols), nil
}

func formatSchema(cols []SchemaColumn) string {
	if len(cols) == 0 {
		return "# DailyFit DB Schema\n\nNo dailyfit tables found in the database.\n"
	}

	byTable := make(map[string][]SchemaColumn)
	for _, c := range cols {
		byTable[c.TableName] = append(byTable[c.TableName], c)
	}

	tableOrder := make([]string, 0, len(byTable))
	for t := range byTable {
		tableOrder = append(tableOrder, t)
	}
	sort.Strings(tableOrder)

	var b strings.Builder
	b.WriteString("# DailyFit DB Schema\n\n")
	b.WriteString("Tables: ")
	b.WriteString(strings.Join(dailyfitTables, ", "))
	b.WriteString(" (schema: public).\n\n")

	for _, tableName := range tableOrder {
		b.WriteString("## ")
		b.WriteString(tableName)
		b.WriteString("\n\n| Column | Type | Nullable | Default |\n|--------|------|----------|--------|\n")
		for _, c := range byTable[tableName] {
			def := "-"
			if c.ColumnDef != nil && *c.ColumnDef != "" {
				def = *c.ColumnDef
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", c.ColumnName, c.DataType, c.IsNullable, def)
		}
		b.WriteString("\n")
	}

	return strings.TrimSuffix(b.String(), "\n\n") + "\n"
}

// ListSessions returns summaries of the user's finished sessions in the given period.
func (s *ContextService) ListSessions(ctx context.Context, params SessionsParams) ([]SessionSummary, error) {
	user, err := s.users.ByEmail(ctx, strings.ToLower(strings.TrimSpace(params.UserEmail)))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	sessions, err := s.sessions.ListSessions(ctx, workout.ListParams{
		UserID:       user.ID,
		From:         &params.From,
		To:           &params.To,
		ExerciseName: params.ExerciseName,
	})
	if err != nil {
		return nil, err
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		summaries = append(summaries, summarize(session))
	}
	return summaries, nil
}

func summarize(session workout.Session) SessionSummary {
	summary := SessionSummary{
		ID:             session.ID,
		Date:           session.Date.Format(time.DateOnly),
		TotalVolumeKg:  session.TotalVolume(),
		Sets:           len(session.ExerciseSets),
		Mobility:       session.PreWorkoutMobility,
		Soreness:       session.PostWorkoutSoreness,
		Notes:          session.Notes,
		SetsByExercise: make(map[string][]SetSummaryEntry),
	}
	if d, ok := session.FormattedDuration(); ok {
		summary.Duration = d
	}
	for _, e := range session.UniqueExercises() {
		summary.Exercises = append(summary.Exercises, e.Name)
	}
	for _, mg := range session.TrainedMuscleGroups() {
		summary.MuscleGroups = append(summary.MuscleGroups, mg.Name)
	}
	for _, set := range session.ExerciseSets {
		name := set.ExerciseID.String()
		if set.Exercise != nil {
			name = set.Exercise.Name
		}
		summary.SetsByExercise[name] = append(summary.SetsByExercise[name], SetSummaryEntry{
			SetNumber: set.SetNumber,
			Reps:      set.Reps,
			WeightKg:  set.WeightKg,
			Effort:    set.EffortRating,
			RestSec:   set.RestDurationSeconds,
		})
	}
	return summary
}

// GetExerciseCatalog returns the shared exercises, optionally filtered.
func (s *ContextService) GetExerciseCatalog(ctx context.Context, muscleGroup, pattern string) ([]CatalogEntry, error) {
	list, err := s.catalog.List(ctx, exercises.ListParams{
		MuscleGroup: muscleGroup,
		Pattern:     pattern,
	})
	if err != nil {
		return nil, err
	}

	entries := make([]CatalogEntry, 0, len(list))
	for _, e := range list {
		entry := CatalogEntry{
			Name:           e.Name,
			PrimaryMuscles: muscleNames(e.PrimaryMuscleGroups),
			Secondary:      muscleNames(e.SecondaryMuscleGroups),
		}
		if e.MovementPattern != nil {
			entry.MovementPattern = string(*e.MovementPattern)
		}
		if e.Instructions != nil {
			entry.Instructions = *e.Instructions
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *ContextService) GetMuscleGroups() map[exercises.MuscleCategory][]exercises.MuscleGroup {
	return exercises.GroupedByCategory()
}

func muscleNames(groups []exercises.MuscleGroup) []string {
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}
	return names
}
