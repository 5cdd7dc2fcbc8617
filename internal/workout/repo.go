package workout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/2beens/dailyfit/internal/exercises"
	"github.com/2beens/dailyfit/internal/repo"
	"github.com/2beens/dailyfit/internal/telemetry/tracing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var (
	_ repo.Repository[Session] = (*PgRepo)(nil)
	_ SessionSink              = (*PgRepo)(nil)
)

// ListParams narrows down finished sessions. A nil UserID matches every user and a
// zero Size disables paging.
type ListParams struct {
	UserID       uuid.UUID
	From         *time.Time
	To           *time.Time
	ExerciseName string
	Page         int
	Size         int
}

func (p ListParams) matches(s Session) bool {
	if p.UserID != uuid.Nil && s.UserID != p.UserID {
		return false
	}
	if p.From != nil && s.StartTime.Before(*p.From) {
		return false
	}
	if p.To != nil && s.StartTime.After(*p.To) {
		return false
	}
	if p.ExerciseName != "" {
		name := strings.ToLower(p.ExerciseName)
		for _, e := range s.UniqueExercises() {
			if strings.Contains(strings.ToLower(e.Name), name) {
				return true
			}
		}
		return false
	}
	return true
}

type PgRepo struct {
	db *pgxpool.Pool
}

func NewPgRepo(db *pgxpool.Pool) *PgRepo {
	return &PgRepo{
		db: db,
	}
}

const selectSession = `SELECT s.id, s.user_id, s.date, s.start_time, s.end_time, s.pre_workout_mobility,
		s.post_workout_soreness, s.notes, s.created_at
	FROM workout_session s`

func (r *PgRepo) Create(ctx context.Context, s Session) (_ Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("session.id", s.ID.String()))

	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(
			ctx,
			`INSERT INTO workout_session
					(id, user_id, date, start_time, end_time, pre_workout_mobility, post_workout_soreness, notes, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()));`,
			s.ID, s.UserID, s.Date, s.StartTime, s.EndTime, s.PreWorkoutMobility, s.PostWorkoutSoreness, s.Notes, s.CreatedAt,
		); err != nil {
			return err
		}
		return insertSets(ctx, tx, s)
	})
	if err != nil {
		return Session{}, err
	}

	return s, nil
}

// SaveSession stores a finished session with all its sets, replacing an earlier copy
// with the same id.
func (r *PgRepo) SaveSession(ctx context.Context, s Session) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.save_session")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("session.id", s.ID.String()),
		attribute.Int("session.sets", len(s.ExerciseSets)),
	)

	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(
			ctx,
			`INSERT INTO workout_session
					(id, user_id, date, start_time, end_time, pre_workout_mobility, post_workout_soreness, notes, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()))
				ON CONFLICT (id) DO UPDATE SET
					end_time = EXCLUDED.end_time,
					pre_workout_mobility = EXCLUDED.pre_workout_mobility,
					post_workout_soreness = EXCLUDED.post_workout_soreness,
					notes = EXCLUDED.notes;`,
			s.ID, s.UserID, s.Date, s.StartTime, s.EndTime, s.PreWorkoutMobility, s.PostWorkoutSoreness, s.Notes, s.CreatedAt,
		); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM exercise_set WHERE workout_session_id = $1`, s.ID); err != nil {
			return err
		}
		return insertSets(ctx, tx, s)
	})
}

func (r *PgRepo) Read(ctx context.Context, id uuid.UUID) (_ Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.read")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id.String()))

	sessions, err := r.query(ctx, selectSession+` WHERE s.id = $1`, id)
	if err != nil {
		return Session{}, err
	}
	if len(sessions) == 0 {
		return Session{}, repo.ErrNotFound
	}
	return sessions[0], nil
}

func (r *PgRepo) Update(ctx context.Context, s Session) (_ Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", s.ID.String()))

	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(
			ctx,
			`UPDATE workout_session SET end_time = $1, pre_workout_mobility = $2, post_workout_soreness = $3, notes = $4
				WHERE id = $5;`,
			s.EndTime, s.PreWorkoutMobility, s.PostWorkoutSoreness, s.Notes, s.ID,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return repo.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM exercise_set WHERE workout_session_id = $1`, s.ID); err != nil {
			return err
		}
		return insertSets(ctx, tx, s)
	})
	if err != nil {
		return Session{}, err
	}

	return s, nil
}

func (r *PgRepo) Delete(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id.String()))

	tag, err := r.db.Exec(ctx, `DELETE FROM workout_session WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *PgRepo) List(ctx context.Context) ([]Session, error) {
	return r.ListSessions(ctx, ListParams{})
}

func (r *PgRepo) ListSessions(ctx context.Context, params ListParams) (_ []Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.list_sessions")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	where, args := params.whereClause()
	query := selectSession + where + ` ORDER BY s.start_time DESC`
	if params.Size > 0 {
		page := max(params.Page, 1)
		args = append(args, params.Size, (page-1)*params.Size)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	return r.query(ctx, query, args...)
}

func (r *PgRepo) CountSessions(ctx context.Context, params ListParams) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.count_sessions")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	where, args := params.whereClause()
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM workout_session s`+where, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (p ListParams) whereClause() (string, []any) {
	var conditions []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if p.UserID != uuid.Nil {
		add("s.user_id = $%d", p.UserID)
	}
	if p.From != nil {
		add("s.start_time >= $%d", *p.From)
	}
	if p.To != nil {
		add("s.start_time <= $%d", *p.To)
	}
	if p.ExerciseName != "" {
		add(`EXISTS (SELECT 1 FROM exercise_set es
				WHERE es.workout_session_id = s.id AND es.exercise->>'name' ILIKE '%%' || $%d || '%%')`, p.ExerciseName)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func (r *PgRepo) query(ctx context.Context, query string, args ...any) ([]Session, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	var sessions []Session
	func() {
		defer rows.Close()
		for rows.Next() {
			var s Session
			if err = rows.Scan(
				&s.ID, &s.UserID, &s.Date, &s.StartTime, &s.EndTime, &s.PreWorkoutMobility,
				&s.PostWorkoutSoreness, &s.Notes, &s.CreatedAt,
			); err != nil {
				err = fmt.Errorf("rows scan: %w", err)
				return
			}
			s.ExerciseSets = []ExerciseSet{}
			sessions = append(sessions, s)
		}
		err = rows.Err()
	}()
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return sessions, nil
	}

	ids := make([]uuid.UUID, 0, len(sessions))
	index := make(map[uuid.UUID]int, len(sessions))
	for i, s := range sessions {
		ids = append(ids, s.ID)
		index[s.ID] = i
	}

	setRows, err := r.db.Query(
		ctx,
		`SELECT id, workout_session_id, exercise_id, set_number, reps, weight_kg, effort_rating,
				rest_duration_seconds, notes, exercise, created_at
			FROM exercise_set
			WHERE workout_session_id = ANY($1)
			ORDER BY created_at, set_number`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer setRows.Close()

	for setRows.Next() {
		var set ExerciseSet
		var exerciseJson []byte
		if err := setRows.Scan(
			&set.ID, &set.WorkoutSessionID, &set.ExerciseID, &set.SetNumber, &set.Reps, &set.WeightKg,
			&set.EffortRating, &set.RestDurationSeconds, &set.Notes, &exerciseJson, &set.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("set rows scan: %w", err)
		}
		if len(exerciseJson) > 0 && string(exerciseJson) != "null" {
			var ex exercises.Exercise
			if err := json.Unmarshal(exerciseJson, &ex); err != nil {
				return nil, fmt.Errorf("unmarshal set exercise: %w", err)
			}
			set.Exercise = &ex
		}
		i := index[set.WorkoutSessionID]
		sessions[i].ExerciseSets = append(sessions[i].ExerciseSets, set)
	}
	if err := setRows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

func insertSets(ctx context.Context, tx pgx.Tx, s Session) error {
	if len(s.ExerciseSets) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, set := range s.ExerciseSets {
		exerciseJson, err := json.Marshal(set.Exercise)
		if err != nil {
			return fmt.Errorf("marshal set exercise: %w", err)
		}
		batch.Queue(
			`INSERT INTO exercise_set
					(id, workout_session_id, exercise_id, set_number, reps, weight_kg, effort_rating,
					 rest_duration_seconds, notes, exercise, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			set.ID, s.ID, set.ExerciseID, set.SetNumber, set.Reps, set.WeightKg, set.EffortRating,
			set.RestDurationSeconds, set.Notes, exerciseJson, set.CreatedAt,
		)
	}
	return tx.SendBatch(ctx, batch).Close()
}

// MemoryRepo keeps finished sessions in process memory.
type MemoryRepo struct {
	*repo.Memory[Session]
}

var _ SessionSink = (*MemoryRepo)(nil)

func NewMemoryRepo(seed ...Session) *MemoryRepo {
	return &MemoryRepo{
		Memory: repo.NewMemory(seed...),
	}
}

func (r *MemoryRepo) SaveSession(ctx context.Context, s Session) error {
	if _, err := r.Update(ctx, s); err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		_, err = r.Create(ctx, s)
		return err
	}
	return nil
}

func (r *MemoryRepo) ListSessions(_ context.Context, params ListParams) ([]Session, error) {
	sessions := r.Filter(params.matches)
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartTime.After(sessions[j].StartTime)
	})
	if params.Size <= 0 {
		return sessions, nil
	}

	page := max(params.Page, 1)
	start := (page - 1) * params.Size
	if start >= len(sessions) {
		return []Session{}, nil
	}
	end := min(start+params.Size, len(sessions))
	return sessions[start:end], nil
}

func (r *MemoryRepo) CountSessions(_ context.Context, params ListParams) (int, error) {
	return len(r.Filter(params.matches)), nil
}
