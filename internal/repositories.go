package internal

import (
	"context"
	"fmt"

	"github.com/2beens/dailyfit/internal/auth"
	"github.com/2beens/dailyfit/internal/equipment"
	"github.com/2beens/dailyfit/internal/exercises"
	"github.com/2beens/dailyfit/internal/profile"
	"github.com/2beens/dailyfit/internal/repo"
	"github.com/2beens/dailyfit/internal/workout"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type equipmentStore interface {
	Create(ctx context.Context, e equipment.Equipment) (equipment.Equipment, error)
	Read(ctx context.Context, id uuid.UUID) (equipment.Equipment, error)
	Update(ctx context.Context, e equipment.Equipment) (equipment.Equipment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]equipment.Equipment, error)
}

type profileStore interface {
	Create(ctx context.Context, p profile.UserProfile) (profile.UserProfile, error)
	Read(ctx context.Context, id uuid.UUID) (profile.UserProfile, error)
	Update(ctx context.Context, p profile.UserProfile) (profile.UserProfile, error)
}

type usersStore interface {
	Create(ctx context.Context, user auth.User) (auth.User, error)
	ByEmail(ctx context.Context, email string) (auth.User, error)
}

type sessionsStore interface {
	workout.SessionSink
	Read(ctx context.Context, id uuid.UUID) (workout.Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListSessions(ctx context.Context, params workout.ListParams) ([]workout.Session, error)
	CountSessions(ctx context.Context, params workout.ListParams) (int, error)
}

// repositories picks the storage backend of every record kind.
type repositories struct {
	equipment equipmentStore
	exercises repo.Repository[exercises.Exercise]
	profiles  profileStore
	users     usersStore
	sessions  sessionsStore
}

func newMemoryRepositories() *repositories {
	return &repositories{
		equipment: equipment.NewMemoryRepo(equipment.Seed()...),
		exercises: repo.NewMemory(exercises.CommonExercises()...),
		profiles:  repo.NewMemory[profile.UserProfile](),
		users:     auth.NewMemoryUsersRepo(),
		sessions:  workout.NewMemoryRepo(),
	}
}

// newPostgresRepositories also makes sure the shared catalog rows exist.
func newPostgresRepositories(ctx context.Context, dbPool *pgxpool.Pool) (*repositories, error) {
	equipmentRepo := equipment.NewPgRepo(dbPool)
	if err := equipmentRepo.EnsureSeed(ctx, equipment.Seed()); err != nil {
		return nil, fmt.Errorf("seed equipment: %w", err)
	}

	exercisesRepo := exercises.NewPgRepo(dbPool)
	if err := exercisesRepo.EnsureSeed(ctx, exercises.CommonExercises()); err != nil {
		return nil, fmt.Errorf("seed exercises: %w", err)
	}

	return &repositories{
		equipment: equipmentRepo,
		exercises: exercisesRepo,
		profiles:  profile.NewPgRepo(dbPool),
		users:     auth.NewUsersRepo(dbPool),
		sessions:  workout.NewPgRepo(dbPool),
	}, nil
}
