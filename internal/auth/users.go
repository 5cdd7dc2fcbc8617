package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/2beens/dailyfit/internal/repo"
	"github.com/2beens/dailyfit/internal/telemetry/tracing"
	"github.com/2beens/dailyfit/pkg"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrEmailTaken = errors.New("email already registered")

type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

func (u User) RecordID() uuid.UUID {
	return u.ID
}

type UsersRepo struct {
	db *pgxpool.Pool
}

func NewUsersRepo(db *pgxpool.Pool) *UsersRepo {
	return &UsersRepo{
		db: db,
	}
}

func (r *UsersRepo) Create(ctx context.Context, user User) (_ User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO app_user (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4);`,
		user.ID, user.Email, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, err
	}
	return user, nil
}

func (r *UsersRepo) ByEmail(ctx context.Context, email string) (_ User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.by_email")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var user User
	err = r.db.QueryRow(
		ctx,
		`SELECT id, email, password_hash, created_at FROM app_user WHERE email = $1;`,
		email,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, repo.ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

// MemoryUsersRepo backs the in-memory run mode.
type MemoryUsersRepo struct {
	*repo.Memory[User]
	createMutex sync.Mutex
}

func NewMemoryUsersRepo() *MemoryUsersRepo {
	return &MemoryUsersRepo{
		Memory: repo.NewMemory[User](),
	}
}

func (r *MemoryUsersRepo) Create(ctx context.Context, user User) (User, error) {
	r.createMutex.Lock()
	defer r.createMutex.Unlock()

	if existing := r.Filter(func(u User) bool { return u.Email == user.Email }); len(existing) > 0 {
		return User{}, ErrEmailTaken
	}
	return r.Memory.Create(ctx, user)
}

func (r *MemoryUsersRepo) ByEmail(_ context.Context, email string) (User, error) {
	found := r.Filter(func(u User) bool { return u.Email == email })
	if len(found) == 0 {
		return User{}, repo.ErrNotFound
	}
	return found[0], nil
}
