package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
	ErrInvalidID     = errors.New("invalid record id")
)

// Repository is the CRUD contract every record store satisfies, in memory or in postgres.
// Read, Update and Delete return ErrNotFound when no record has the given id.
type Repository[T any] interface {
	Create(ctx context.Context, record T) (T, error)
	Read(ctx context.Context, id uuid.UUID) (T, error)
	Update(ctx context.Context, record T) (T, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]T, error)
}

type Identifiable interface {
	RecordID() uuid.UUID
}
