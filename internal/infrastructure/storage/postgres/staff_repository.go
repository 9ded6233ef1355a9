package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"github.com/jtoza/school-sync-pro/internal/domain/staff"
)

type StaffRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewStaffRepository(pool *pgxpool.Pool, log *slog.Logger) *StaffRepository {
	return &StaffRepository{
		pool: pool,
		log:  log.With("component", "staff_repository"),
	}
}

const staffColumns = `id, current_status, surname, firstname, other_name, gender,
	       date_of_birth, date_of_admission, mobile_number, address,
	       sync_id, sync_status, last_modified, device_id`

func (r *StaffRepository) GetBySyncID(ctx context.Context, syncID uuid.UUID) (*staff.Staff, error) {
	query := `SELECT ` + staffColumns + ` FROM staff WHERE sync_id = $1`

	s, err := r.scanStaff(r.pool.QueryRow(ctx, query, syncID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, staff.ErrNotFound
		}
		r.log.Error("failed to get staff", "sync_id", syncID.String(), "error", err)
		return nil, fmt.Errorf("get staff: %w", err)
	}
	return s, nil
}

func (r *StaffRepository) First(ctx context.Context) (*staff.Staff, error) {
	query := `SELECT ` + staffColumns + ` FROM staff ORDER BY id LIMIT 1`

	s, err := r.scanStaff(r.pool.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, staff.ErrNoStaff
		}
		r.log.Error("failed to get first staff", "error", err)
		return nil, fmt.Errorf("first staff: %w", err)
	}
	return s, nil
}

func (r *StaffRepository) Create(ctx context.Context, s *staff.Staff) error {
	const query = `
		INSERT INTO staff (current_status, surname, firstname, other_name, gender,
		                   date_of_birth, date_of_admission, mobile_number, address,
		                   sync_id, sync_status, device_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, last_modified`

	err := r.pool.QueryRow(ctx, query,
		s.CurrentStatus, s.Surname, s.Firstname, s.OtherName, s.Gender,
		s.DateOfBirth, s.DateOfAdmission, s.MobileNumber, s.Address,
		s.SyncID, s.SyncStatus, s.DeviceID,
	).Scan(&s.ID, &s.LastModified)
	if err != nil {
		r.log.Error("failed to create staff", "sync_id", s.SyncID.String(), "error", err)
		return fmt.Errorf("create staff: %w", err)
	}
	return nil
}

func (r *StaffRepository) Update(ctx context.Context, s *staff.Staff) error {
	const query = `
		UPDATE staff
		SET current_status = $1, surname = $2, firstname = $3, other_name = $4,
		    gender = $5, date_of_birth = $6, date_of_admission = $7,
		    mobile_number = $8, address = $9, sync_status = $10, device_id = $11,
		    last_modified = NOW()
		WHERE sync_id = $12
		RETURNING id, last_modified`

	err := r.pool.QueryRow(ctx, query,
		s.CurrentStatus, s.Surname, s.Firstname, s.OtherName,
		s.Gender, s.DateOfBirth, s.DateOfAdmission,
		s.MobileNumber, s.Address, s.SyncStatus, s.DeviceID,
		s.SyncID,
	).Scan(&s.ID, &s.LastModified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return staff.ErrNotFound
		}
		r.log.Error("failed to update staff", "sync_id", s.SyncID.String(), "error", err)
		return fmt.Errorf("update staff: %w", err)
	}
	return nil
}

func (r *StaffRepository) ChangesSince(ctx context.Context, since time.Time) ([]staff.Staff, error) {
	query := `SELECT ` + staffColumns + ` FROM staff WHERE last_modified > $1 ORDER BY last_modified`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		r.log.Error("failed to list staff changes", "error", err)
		return nil, fmt.Errorf("staff changes: %w", err)
	}
	defer rows.Close()

	var out []staff.Staff
	for rows.Next() {
		s, err := r.scanStaff(rows)
		if err != nil {
			return nil, fmt.Errorf("scan staff: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *StaffRepository) scanStaff(row pgx.Row) (*staff.Staff, error) {
	var s staff.Staff
	err := row.Scan(
		&s.ID, &s.CurrentStatus, &s.Surname, &s.Firstname, &s.OtherName, &s.Gender,
		&s.DateOfBirth, &s.DateOfAdmission, &s.MobileNumber, &s.Address,
		&s.SyncID, &s.SyncStatus, &s.LastModified, &s.DeviceID,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

type AttendanceRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewAttendanceRepository(pool *pgxpool.Pool, log *slog.Logger) *AttendanceRepository {
	return &AttendanceRepository{
		pool: pool,
		log:  log.With("component", "attendance_repository"),
	}
}

const attendanceColumns = `a.id, a.teacher_id, s.sync_id, a.date, a.status,
	       a.time_in, a.time_out, a.notes,
	       a.sync_id, a.sync_status, a.last_modified, a.device_id`

func (r *AttendanceRepository) GetBySyncID(ctx context.Context, syncID uuid.UUID) (*staff.TeacherAttendance, error) {
	query := `
		SELECT ` + attendanceColumns + `
		FROM teacher_attendance a
		JOIN staff s ON s.id = a.teacher_id
		WHERE a.sync_id = $1`

	a, err := r.scanAttendance(r.pool.QueryRow(ctx, query, syncID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, staff.ErrAttendanceNotFound
		}
		r.log.Error("failed to get attendance", "sync_id", syncID.String(), "error", err)
		return nil, fmt.Errorf("get attendance: %w", err)
	}
	return a, nil
}

// CreateMerging вставляет запись одним оператором; коллизия по
// (teacher_id, date) переводит вставку в перезапись существующей
// строки. xmax <> 0 отличает перезапись от чистой вставки.
func (r *AttendanceRepository) CreateMerging(ctx context.Context, a *staff.TeacherAttendance) (bool, error) {
	const query = `
		INSERT INTO teacher_attendance
		       (teacher_id, date, status, time_in, time_out, notes,
		        sync_id, sync_status, device_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (teacher_id, date) DO UPDATE SET
		       status = EXCLUDED.status,
		       time_in = EXCLUDED.time_in,
		       time_out = EXCLUDED.time_out,
		       notes = EXCLUDED.notes,
		       sync_id = EXCLUDED.sync_id,
		       sync_status = EXCLUDED.sync_status,
		       device_id = EXCLUDED.device_id,
		       last_modified = NOW()
		RETURNING id, last_modified, (xmax <> 0)`

	var merged bool
	err := r.pool.QueryRow(ctx, query,
		a.TeacherID, a.Date, a.Status, timeOfDay(a.TimeIn), timeOfDay(a.TimeOut), a.Notes,
		a.SyncID, a.SyncStatus, a.DeviceID,
	).Scan(&a.ID, &a.LastModified, &merged)
	if err != nil {
		r.log.Error("failed to create attendance",
			"teacher_id", a.TeacherID, "date", a.Date.Format("2006-01-02"), "error", err)
		return false, fmt.Errorf("create attendance: %w", err)
	}
	return merged, nil
}

// Список SET обязан покрывать каждое поле, которое применитель может
// изменить на update: пропущенная колонка молча откатит правку
// устройства следующей дельтой.
const attendanceUpdateQuery = `
	UPDATE teacher_attendance
	SET date = $1, status = $2, time_in = $3, time_out = $4, notes = $5,
	    sync_status = $6, device_id = $7, last_modified = NOW()
	WHERE sync_id = $8
	RETURNING id, last_modified`

func (r *AttendanceRepository) Update(ctx context.Context, a *staff.TeacherAttendance) error {
	const query = attendanceUpdateQuery

	err := r.pool.QueryRow(ctx, query,
		a.Date, a.Status, timeOfDay(a.TimeIn), timeOfDay(a.TimeOut), a.Notes,
		a.SyncStatus, a.DeviceID, a.SyncID,
	).Scan(&a.ID, &a.LastModified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return staff.ErrAttendanceNotFound
		}
		r.log.Error("failed to update attendance", "sync_id", a.SyncID.String(), "error", err)
		return fmt.Errorf("update attendance: %w", err)
	}
	return nil
}

func (r *AttendanceRepository) ChangesSince(ctx context.Context, since time.Time) ([]staff.TeacherAttendance, error) {
	query := `
		SELECT ` + attendanceColumns + `
		FROM teacher_attendance a
		JOIN staff s ON s.id = a.teacher_id
		WHERE a.last_modified > $1
		ORDER BY a.last_modified`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		r.log.Error("failed to list attendance changes", "error", err)
		return nil, fmt.Errorf("attendance changes: %w", err)
	}
	defer rows.Close()

	var out []staff.TeacherAttendance
	for rows.Next() {
		a, err := r.scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *AttendanceRepository) scanAttendance(row pgx.Row) (*staff.TeacherAttendance, error) {
	var (
		a       staff.TeacherAttendance
		in, out pgtype.Time
	)
	err := row.Scan(
		&a.ID, &a.TeacherID, &a.TeacherSyncID, &a.Date, &a.Status,
		&in, &out, &a.Notes,
		&a.SyncID, &a.SyncStatus, &a.LastModified, &a.DeviceID,
	)
	if err != nil {
		return nil, err
	}
	a.TimeIn = fromTimeOfDay(in)
	a.TimeOut = fromTimeOfDay(out)
	return &a, nil
}

// timeOfDay переводит время суток в TIME-значение; nil дает NULL.
func timeOfDay(t *time.Time) pgtype.Time {
	if t == nil {
		return pgtype.Time{}
	}
	us := int64(t.Hour())*3600 + int64(t.Minute())*60 + int64(t.Second())
	return pgtype.Time{Microseconds: us * 1e6, Valid: true}
}

func fromTimeOfDay(v pgtype.Time) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Date(0, time.January, 1, 0, 0, 0, 0, time.UTC).
		Add(time.Duration(v.Microseconds) * time.Microsecond)
	return &t
}
