package staff

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository — хранилище сотрудников.
type Repository interface {
	GetBySyncID(ctx context.Context, syncID uuid.UUID) (*Staff, error)
	// First возвращает первого по порядку сотрудника; ErrNoStaff,
	// когда хранилище пусто.
	First(ctx context.Context) (*Staff, error)
	Create(ctx context.Context, s *Staff) error
	Update(ctx context.Context, s *Staff) error
	ChangesSince(ctx context.Context, since time.Time) ([]Staff, error)
}

// AttendanceRepository — хранилище посещаемости учителей.
type AttendanceRepository interface {
	GetBySyncID(ctx context.Context, syncID uuid.UUID) (*TeacherAttendance, error)
	// CreateMerging атомарно вставляет запись либо, при коллизии
	// натурального ключа (teacher_id, date), перезаписывает
	// существующую строку входящими значениями, включая sync_id.
	// Возвращает merged=true, когда сработала перезапись. Явная
	// проверка коллизии живет в одном операторе хранилища, а не в
	// перехвате ошибки уникальности.
	CreateMerging(ctx context.Context, a *TeacherAttendance) (merged bool, err error)
	Update(ctx context.Context, a *TeacherAttendance) error
	ChangesSince(ctx context.Context, since time.Time) ([]TeacherAttendance, error)
}
