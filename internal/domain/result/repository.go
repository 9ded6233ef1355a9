package result

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository — хранилище оценок.
type Repository interface {
	GetBySyncID(ctx context.Context, syncID uuid.UUID) (*Result, error)
	Create(ctx context.Context, r *Result) error
	Update(ctx context.Context, r *Result) error
	ChangesSince(ctx context.Context, since time.Time) ([]Result, error)
}

// StudentResolver разрешает ссылку на ученика по его sync_id. Если
// ученик не найден, реализация возвращает sync.ErrReferenceNotFound.
type StudentResolver interface {
	ResolveStudent(ctx context.Context, syncID uuid.UUID) (localID int, err error)
}
