package student

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository — хранилище учеников.
type Repository interface {
	GetBySyncID(ctx context.Context, syncID uuid.UUID) (*Student, error)
	// CreateMerging атомарно вставляет ученика либо, при коллизии
	// регистрационного номера, перезаписывает существующую строку
	// входящими значениями вместе с sync_id. merged=true при
	// перезаписи.
	CreateMerging(ctx context.Context, s *Student) (merged bool, err error)
	Update(ctx context.Context, s *Student) error
	ChangesSince(ctx context.Context, since time.Time) ([]Student, error)
}
