package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"github.com/jtoza/school-sync-pro/internal/domain/student"
	syncdomain "github.com/jtoza/school-sync-pro/internal/domain/sync"
)

type StudentRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewStudentRepository(pool *pgxpool.Pool, log *slog.Logger) *StudentRepository {
	return &StudentRepository{
		pool: pool,
		log:  log.With("component", "student_repository"),
	}
}

const studentColumns = `id, current_status, registration_number, surname, firstname,
	       other_name, gender, date_of_birth, date_of_admission,
	       parent_mobile_number, guardian_name, guardian_phone, address,
	       sync_id, sync_status, last_modified, device_id`

func (r *StudentRepository) GetBySyncID(ctx context.Context, syncID uuid.UUID) (*student.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE sync_id = $1`

	s, err := r.scanStudent(r.pool.QueryRow(ctx, query, syncID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, student.ErrNotFound
		}
		r.log.Error("failed to get student", "sync_id", syncID.String(), "error", err)
		return nil, fmt.Errorf("get student: %w", err)
	}
	return s, nil
}

// ResolveStudent возвращает локальный id ученика по sync_id; нужен
// доменам, которые ссылаются на ученика из своих конвертов. Отсутствие
// ученика — sync.ErrReferenceNotFound, как того требует контракт
// StudentResolver.
func (r *StudentRepository) ResolveStudent(ctx context.Context, syncID uuid.UUID) (int, error) {
	var id int
	err := r.pool.QueryRow(ctx,
		`SELECT id FROM students WHERE sync_id = $1`, syncID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: student %s", syncdomain.ErrReferenceNotFound, syncID)
		}
		return 0, fmt.Errorf("resolve student: %w", err)
	}
	return id, nil
}

// CreateMerging вставляет ученика одним оператором; коллизия по
// регистрационному номеру переводит вставку в перезапись существующей
// строки вместе с sync_id.
func (r *StudentRepository) CreateMerging(ctx context.Context, s *student.Student) (bool, error) {
	const query = `
		INSERT INTO students
		       (current_status, registration_number, surname, firstname, other_name,
		        gender, date_of_birth, date_of_admission, parent_mobile_number,
		        guardian_name, guardian_phone, address, sync_id, sync_status, device_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (registration_number) DO UPDATE SET
		       current_status = EXCLUDED.current_status,
		       surname = EXCLUDED.surname,
		       firstname = EXCLUDED.firstname,
		       other_name = EXCLUDED.other_name,
		       gender = EXCLUDED.gender,
		       date_of_birth = EXCLUDED.date_of_birth,
		       date_of_admission = EXCLUDED.date_of_admission,
		       parent_mobile_number = EXCLUDED.parent_mobile_number,
		       guardian_name = EXCLUDED.guardian_name,
		       guardian_phone = EXCLUDED.guardian_phone,
		       address = EXCLUDED.address,
		       sync_id = EXCLUDED.sync_id,
		       sync_status = EXCLUDED.sync_status,
		       device_id = EXCLUDED.device_id,
		       last_modified = NOW()
		RETURNING id, last_modified, (xmax <> 0)`

	var merged bool
	err := r.pool.QueryRow(ctx, query,
		s.CurrentStatus, s.RegistrationNumber, s.Surname, s.Firstname, s.OtherName,
		s.Gender, s.DateOfBirth, s.DateOfAdmission, s.ParentMobileNumber,
		s.GuardianName, s.GuardianPhone, s.Address, s.SyncID, s.SyncStatus, s.DeviceID,
	).Scan(&s.ID, &s.LastModified, &merged)
	if err != nil {
		r.log.Error("failed to create student",
			"registration_number", s.RegistrationNumber, "error", err)
		return false, fmt.Errorf("create student: %w", err)
	}
	return merged, nil
}

func (r *StudentRepository) Update(ctx context.Context, s *student.Student) error {
	const query = `
		UPDATE students
		SET current_status = $1, registration_number = $2, surname = $3,
		    firstname = $4, other_name = $5, gender = $6, date_of_birth = $7,
		    date_of_admission = $8, parent_mobile_number = $9, guardian_name = $10,
		    guardian_phone = $11, address = $12, sync_status = $13, device_id = $14,
		    last_modified = NOW()
		WHERE sync_id = $15
		RETURNING id, last_modified`

	err := r.pool.QueryRow(ctx, query,
		s.CurrentStatus, s.RegistrationNumber, s.Surname,
		s.Firstname, s.OtherName, s.Gender, s.DateOfBirth,
		s.DateOfAdmission, s.ParentMobileNumber, s.GuardianName,
		s.GuardianPhone, s.Address, s.SyncStatus, s.DeviceID,
		s.SyncID,
	).Scan(&s.ID, &s.LastModified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return student.ErrNotFound
		}
		r.log.Error("failed to update student", "sync_id", s.SyncID.String(), "error", err)
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

func (r *StudentRepository) ChangesSince(ctx context.Context, since time.Time) ([]student.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE last_modified > $1 ORDER BY last_modified`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		r.log.Error("failed to list student changes", "error", err)
		return nil, fmt.Errorf("student changes: %w", err)
	}
	defer rows.Close()

	var out []student.Student
	for rows.Next() {
		s, err := r.scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *StudentRepository) scanStudent(row pgx.Row) (*student.Student, error) {
	var s student.Student
	err := row.Scan(
		&s.ID, &s.CurrentStatus, &s.RegistrationNumber, &s.Surname, &s.Firstname,
		&s.OtherName, &s.Gender, &s.DateOfBirth, &s.DateOfAdmission,
		&s.ParentMobileNumber, &s.GuardianName, &s.GuardianPhone, &s.Address,
		&s.SyncID, &s.SyncStatus, &s.LastModified, &s.DeviceID,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
