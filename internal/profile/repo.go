package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/dailyfit/internal/repo"
	"github.com/2beens/dailyfit/internal/telemetry/tracing"
	"github.com/2beens/dailyfit/pkg"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var _ repo.Repository[UserProfile] = (*PgRepo)(nil)

// ErrUnknownUser is returned when the profile owner has no account (anymore).
var ErrUnknownUser = errors.New("profile owner does not exist")

type PgRepo struct {
	db *pgxpool.Pool
}

func NewPgRepo(db *pgxpool.Pool) *PgRepo {
	return &PgRepo{
		db: db,
	}
}

const selectProfile = `SELECT id, age, gender, height_cm, weight_kg, fitness_goal, experience_level, created_at, updated_at
	FROM user_profile`

func (r *PgRepo) Create(ctx context.Context, p UserProfile) (_ UserProfile, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.profile.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", p.ID.String()))

	if _, err := r.db.Exec(
		ctx,
		`INSERT INTO user_profile
				(id, age, gender, height_cm, weight_kg, fitness_goal, experience_level, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`,
		p.ID, p.Age, enumText(p.Gender), p.HeightCm, p.WeightKg,
		enumText(p.FitnessGoal), enumText(p.ExperienceLevel), p.CreatedAt, p.UpdatedAt,
	); err != nil {
		if pkg.IsForeignKeyViolationError(err) {
			return UserProfile{}, fmt.Errorf("%w: %s", ErrUnknownUser, p.ID)
		}
		return UserProfile{}, err
	}

	return p, nil
}

func (r *PgRepo) Read(ctx context.Context, id uuid.UUID) (_ UserProfile, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.profile.read")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", id.String()))

	rows, err := r.db.Query(ctx, selectProfile+` WHERE id = $1`, id)
	if err != nil {
		return UserProfile{}, err
	}
	list, err := scanProfileRows(rows)
	if err != nil {
		return UserProfile{}, err
	}
	if len(list) == 0 {
		return UserProfile{}, repo.ErrNotFound
	}
	return list[0], nil
}

func (r *PgRepo) Update(ctx context.Context, p UserProfile) (_ UserProfile, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.profile.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", p.ID.String()))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE user_profile SET age = $1, gender = $2, height_cm = $3, weight_kg = $4, fitness_goal = $5,
				experience_level = $6, updated_at = $7
			WHERE id = $8;`,
		p.Age, enumText(p.Gender), p.HeightCm, p.WeightKg, enumText(p.FitnessGoal),
		enumText(p.ExperienceLevel), p.UpdatedAt, p.ID,
	)
	if err != nil {
		return UserProfile{}, err
	}
	if tag.RowsAffected() == 0 {
		return UserProfile{}, repo.ErrNotFound
	}

	return p, nil
}

func (r *PgRepo) Delete(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.profile.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(ctx, `DELETE FROM user_profile WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *PgRepo) List(ctx context.Context) (_ []UserProfile, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.profile.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, selectProfile+` ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	return scanProfileRows(rows)
}

func scanProfileRows(rows pgx.Rows) ([]UserProfile, error) {
	defer rows.Close()

	var list []UserProfile
	for rows.Next() {
		var p UserProfile
		var gender, goal, level *string
		if err := rows.Scan(
			&p.ID, &p.Age, &gender, &p.HeightCm, &p.WeightKg, &goal, &level, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		p.Gender = enumPtr[Gender](gender)
		p.FitnessGoal = enumPtr[FitnessGoal](goal)
		p.ExperienceLevel = enumPtr[ExperienceLevel](level)
		list = append(list, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

func enumText[E ~string](v *E) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func enumPtr[E ~string](s *string) *E {
	if s == nil {
		return nil
	}
	v := E(*s)
	return &v
}
