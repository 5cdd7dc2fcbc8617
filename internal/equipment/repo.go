package equipment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/2beens/dailyfit/internal/repo"
	"github.com/2beens/dailyfit/internal/telemetry/tracing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var _ repo.Repository[Equipment] = (*PgRepo)(nil)

type PgRepo struct {
	db *pgxpool.Pool
}

func NewPgRepo(db *pgxpool.Pool) *PgRepo {
	return &PgRepo{
		db: db,
	}
}

const selectEquipment = `SELECT id, user_id, name, type, specifications, is_available, gym_location, created_at FROM equipment`

func (r *PgRepo) Create(ctx context.Context, e Equipment) (_ Equipment, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.equipment.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("equipment.id", e.ID.String()))

	specsJson, err := json.Marshal(e.Specifications)
	if err != nil {
		return Equipment{}, fmt.Errorf("marshal specifications: %w", err)
	}

	if err := r.db.QueryRow(
		ctx,
		`INSERT INTO equipment
				(id, user_id, name, type, specifications, is_available, gym_location, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))
			RETURNING created_at;`,
		e.ID, e.UserID, e.Name, string(e.Type), specsJson, e.IsAvailable, e.GymLocation, e.CreatedAt,
	).Scan(&e.CreatedAt); err != nil {
		return Equipment{}, err
	}

	return e, nil
}

func (r *PgRepo) Read(ctx context.Context, id uuid.UUID) (_ Equipment, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.equipment.read")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id.String()))

	rows, err := r.db.Query(ctx, selectEquipment+` WHERE id = $1`, id)
	if err != nil {
		return Equipment{}, err
	}
	list, err := scanEquipmentRows(rows)
	if err != nil {
		return Equipment{}, err
	}
	if len(list) == 0 {
		return Equipment{}, repo.ErrNotFound
	}
	return list[0], nil
}

func (r *PgRepo) Update(ctx context.Context, e Equipment) (_ Equipment, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.equipment.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", e.ID.String()))

	specsJson, err := json.Marshal(e.Specifications)
	if err != nil {
		return Equipment{}, fmt.Errorf("marshal specifications: %w", err)
	}

	tag, err := r.db.Exec(
		ctx,
		`UPDATE equipment SET name = $1, type = $2, specifications = $3, is_available = $4, gym_location = $5 WHERE id = $6;`,
		e.Name, string(e.Type), specsJson, e.IsAvailable, e.GymLocation, e.ID,
	)
	if err != nil {
		return Equipment{}, err
	}
	if tag.RowsAffected() == 0 {
		return Equipment{}, repo.ErrNotFound
	}

	return e, nil
}

func (r *PgRepo) Delete(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.equipment.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id.String()))

	tag, err := r.db.Exec(ctx, `DELETE FROM equipment WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *PgRepo) List(ctx context.Context) (_ []Equipment, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.equipment.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, selectEquipment+` ORDER BY created_at, name`)
	if err != nil {
		return nil, err
	}
	return scanEquipmentRows(rows)
}

func (r *PgRepo) ListForUser(ctx context.Context, userID uuid.UUID) (_ []Equipment, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.equipment.list_for_user")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID.String()))

	rows, err := r.db.Query(
		ctx,
		selectEquipment+` WHERE user_id = $1 OR user_id = $2 ORDER BY created_at, name`,
		userID, uuid.Nil,
	)
	if err != nil {
		return nil, err
	}
	return scanEquipmentRows(rows)
}

// EnsureSeed inserts the shared starter gear, skipping rows that already exist.
func (r *PgRepo) EnsureSeed(ctx context.Context, seed []Equipment) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.equipment.ensure_seed")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	batch := &pgx.Batch{}
	for _, e := range seed {
		specsJson, err := json.Marshal(e.Specifications)
		if err != nil {
			return fmt.Errorf("marshal specifications: %w", err)
		}
		batch.Queue(
			`INSERT INTO equipment (id, user_id, name, type, specifications, is_available)
				VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING`,
			e.ID, e.UserID, e.Name, string(e.Type), specsJson, e.IsAvailable,
		)
	}
	return r.db.SendBatch(ctx, batch).Close()
}

func scanEquipmentRows(rows pgx.Rows) ([]Equipment, error) {
	defer rows.Close()

	var list []Equipment
	for rows.Next() {
		var e Equipment
		var eType string
		var specsJson []byte
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.Name, &eType, &specsJson, &e.IsAvailable, &e.GymLocation, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		e.Type = Type(eType)
		if len(specsJson) > 0 {
			if err := json.Unmarshal(specsJson, &e.Specifications); err != nil {
				return nil, fmt.Errorf("unmarshal specifications: %w", err)
			}
		}
		list = append(list, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}
