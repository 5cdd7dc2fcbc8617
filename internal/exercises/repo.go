package exercises

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/2beens/dailyfit/internal/equipment"
	"github.com/2beens/dailyfit/internal/repo"
	"github.com/2beens/dailyfit/internal/telemetry/tracing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var _ repo.Repository[Exercise] = (*PgRepo)(nil)

type PgRepo struct {
	db *pgxpool.Pool
}

func NewPgRepo(db *pgxpool.Pool) *PgRepo {
	return &PgRepo{
		db: db,
	}
}

const selectExercise = `SELECT id, user_id, name, instructions, video_url, movement_pattern, is_custom, is_public,
		primary_muscles, secondary_muscles, equipment_options, created_at
	FROM exercise`

type exerciseRow struct {
	movementPattern *string
	primary         []string
	secondary       []string
	equipmentJson   []byte
}

func toRow(e Exercise) (exerciseRow, error) {
	row := exerciseRow{
		primary:   muscleNames(e.PrimaryMuscleGroups),
		secondary: muscleNames(e.SecondaryMuscleGroups),
	}
	if e.MovementPattern != nil {
		p := string(*e.MovementPattern)
		row.movementPattern = &p
	}
	equipmentOptions := e.EquipmentOptions
	if equipmentOptions == nil {
		equipmentOptions = []equipment.Equipment{}
	}
	equipmentJson, err := json.Marshal(equipmentOptions)
	if err != nil {
		return exerciseRow{}, fmt.Errorf("marshal equipment options: %w", err)
	}
	row.equipmentJson = equipmentJson
	return row, nil
}

func (r *PgRepo) Create(ctx context.Context, e Exercise) (_ Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise.id", e.ID.String()))

	row, err := toRow(e)
	if err != nil {
		return Exercise{}, err
	}

	if err := r.db.QueryRow(
		ctx,
		`INSERT INTO exercise
				(id, user_id, name, instructions, video_url, movement_pattern, is_custom, is_public,
				 primary_muscles, secondary_muscles, equipment_options, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, COALESCE($12, NOW()))
			RETURNING created_at;`,
		e.ID, e.UserID, e.Name, e.Instructions, e.VideoURL, row.movementPattern, e.IsCustom, e.IsPublic,
		row.primary, row.secondary, row.equipmentJson, e.CreatedAt,
	).Scan(&e.CreatedAt); err != nil {
		return Exercise{}, err
	}

	return e, nil
}

func (r *PgRepo) Read(ctx context.Context, id uuid.UUID) (_ Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.read")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id.String()))

	rows, err := r.db.Query(ctx, selectExercise+` WHERE id = $1`, id)
	if err != nil {
		return Exercise{}, err
	}
	list, err := scanExerciseRows(rows)
	if err != nil {
		return Exercise{}, err
	}
	if len(list) == 0 {
		return Exercise{}, repo.ErrNotFound
	}
	return list[0], nil
}

func (r *PgRepo) Update(ctx context.Context, e Exercise) (_ Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", e.ID.String()))

	row, err := toRow(e)
	if err != nil {
		return Exercise{}, err
	}

	tag, err := r.db.Exec(
		ctx,
		`UPDATE exercise SET name = $1, instructions = $2, video_url = $3, movement_pattern = $4, is_custom = $5,
				is_public = $6, primary_muscles = $7, secondary_muscles = $8, equipment_options = $9
			WHERE id = $10;`,
		e.Name, e.Instructions, e.VideoURL, row.movementPattern, e.IsCustom,
		e.IsPublic, row.primary, row.secondary, row.equipmentJson, e.ID,
	)
	if err != nil {
		return Exercise{}, err
	}
	if tag.RowsAffected() == 0 {
		return Exercise{}, repo.ErrNotFound
	}

	return e, nil
}

func (r *PgRepo) Delete(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id.String()))

	tag, err := r.db.Exec(ctx, `DELETE FROM exercise WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *PgRepo) List(ctx context.Context) (_ []Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, selectExercise+` ORDER BY created_at, name`)
	if err != nil {
		return nil, err
	}
	return scanExerciseRows(rows)
}

// EnsureSeed inserts the common exercises, skipping ones already present.
func (r *PgRepo) EnsureSeed(ctx context.Context, seed []Exercise) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.ensure_seed")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	batch := &pgx.Batch{}
	for _, e := range seed {
		row, err := toRow(e)
		if err != nil {
			return err
		}
		batch.Queue(
			`INSERT INTO exercise
					(id, user_id, name, instructions, video_url, movement_pattern, is_custom, is_public,
					 primary_muscles, secondary_muscles, equipment_options)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) ON CONFLICT (id) DO NOTHING`,
			e.ID, e.UserID, e.Name, e.Instructions, e.VideoURL, row.movementPattern, e.IsCustom, e.IsPublic,
			row.primary, row.secondary, row.equipmentJson,
		)
	}
	return r.db.SendBatch(ctx, batch).Close()
}

func scanExerciseRows(rows pgx.Rows) ([]Exercise, error) {
	defer rows.Close()

	var list []Exercise
	for rows.Next() {
		var e Exercise
		var row exerciseRow
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.Name, &e.Instructions, &e.VideoURL, &row.movementPattern, &e.IsCustom, &e.IsPublic,
			&row.primary, &row.secondary, &row.equipmentJson, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}

		if row.movementPattern != nil {
			p := MovementPattern(*row.movementPattern)
			e.MovementPattern = &p
		}
		e.PrimaryMuscleGroups = muscleGroupsFromNames(row.primary)
		e.SecondaryMuscleGroups = muscleGroupsFromNames(row.secondary)
		e.EquipmentOptions = []equipment.Equipment{}
		if len(row.equipmentJson) > 0 {
			if err := json.Unmarshal(row.equipmentJson, &e.EquipmentOptions); err != nil {
				return nil, fmt.Errorf("unmarshal equipment options: %w", err)
			}
		}

		list = append(list, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

func muscleNames(groups []MuscleGroup) []string {
	names := make([]string, 0, len(groups))
	for _, mg := range groups {
		names = append(names, mg.Name)
	}
	return names
}

func muscleGroupsFromNames(names []string) []MuscleGroup {
	groups := make([]MuscleGroup, 0, len(names))
	for _, n := range names {
		mg, ok := MuscleGroupByName(n)
		if !ok {
			log.Warnf("exercises repo: unknown muscle group [%s] skipped", n)
			continue
		}
		groups = append(groups, mg)
	}
	return groups
}
