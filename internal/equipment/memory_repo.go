package equipment

import (
	"context"

	"github.com/2beens/dailyfit/internal/repo"

	"github.com/google/uuid"
)

type MemoryRepo struct {
	*repo.Memory[Equipment]
}

func NewMemoryRepo(seed ...Equipment) *MemoryRepo {
	return &MemoryRepo{
		Memory: repo.NewMemory(seed...),
	}
}

func (r *MemoryRepo) ListForUser(_ context.Context, userID uuid.UUID) ([]Equipment, error) {
	return r.Filter(func(e Equipment) bool {
		return e.VisibleTo(userID)
	}), nil
}
