package staff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"github.com/jtoza/school-sync-pro/internal/domain/sync"
)

// AttendanceSync — применитель и сборщик конвертов teacher_attendance.
type AttendanceSync struct {
	staff      Repository
	attendance AttendanceRepository
	log        *slog.Logger
}

// NewAttendanceSync создает синхронизацию посещаемости учителей.
func NewAttendanceSync(staff Repository, attendance AttendanceRepository, log *slog.Logger) *AttendanceSync {
	return &AttendanceSync{
		staff:      staff,
		attendance: attendance,
		log:        log.With(slog.String("component", "attendance_sync")),
	}
}

// Apply применяет один конверт teacher_attendance.
func (s *AttendanceSync) Apply(ctx context.Context, op sync.Operation, data sync.Payload, deviceID string) (*sync.Envelope, error) {
	switch op {
	case sync.OpCreate:
		return s.applyCreate(ctx, data, deviceID)
	case sync.OpUpdate:
		return s.applyUpdate(ctx, data, deviceID)
	}
	return nil, fmt.Errorf("%w: %s", sync.ErrUnknownOperation, op)
}

func (s *AttendanceSync) applyCreate(ctx context.Context, data sync.Payload, deviceID string) (*sync.Envelope, error) {
	syncID, err := data.SyncID()
	if err != nil {
		return nil, err
	}

	// Повторная доставка того же create — безопасный no-op.
	if _, err := s.attendance.GetBySyncID(ctx, syncID); err == nil {
		return nil, fmt.Errorf("%w: %s", sync.ErrDuplicate, syncID)
	} else if !errors.Is(err, ErrAttendanceNotFound) {
		return nil, fmt.Errorf("check existing attendance: %w", err)
	}

	teacher, err := s.resolveTeacher(ctx, data)
	if err != nil {
		return nil, err
	}

	date, err := data.Date("date")
	if err != nil {
		return nil, err
	}
	rawStatus, err := data.String("status")
	if err != nil {
		return nil, err
	}
	status, err := ParseAttendanceStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	timeIn, err := data.TimeOfDay("time_in")
	if err != nil {
		return nil, err
	}
	timeOut, err := data.TimeOfDay("time_out")
	if err != nil {
		return nil, err
	}
	notes, _ := data.OptString("notes")

	att := &TeacherAttendance{
		TeacherID:     teacher.ID,
		TeacherSyncID: teacher.SyncID,
		Date:          date,
		Status:        status,
		TimeIn:        timeIn,
		TimeOut:       timeOut,
		Notes:         notes,
		Meta:          sync.Meta{SyncID: syncID},
	}
	att.MarkSynced(deviceID)

	// Коллизия натурального ключа (учитель, дата) — конкурентная
	// правка той же смысловой записи с другого устройства: строка
	// перезаписывается входящими значениями, sync_id переезжает на
	// входящий, и исход подтверждается как update. Последний
	// пришедший на сервер конверт выигрывает.
	merged, err := s.attendance.CreateMerging(ctx, att)
	if err != nil {
		return nil, fmt.Errorf("persist attendance: %w", err)
	}

	outcome := sync.OpCreate
	if merged {
		outcome = sync.OpUpdate
		s.log.Info("attendance create merged into existing record",
			slog.String("sync_id", syncID.String()),
			slog.String("date", date.Format(sync.WireDate)),
		)
	}

	return s.serialize(att, outcome), nil
}

func (s *AttendanceSync) applyUpdate(ctx context.Context, data sync.Payload, deviceID string) (*sync.Envelope, error) {
	syncID, err := data.SyncID()
	if err != nil {
		return nil, err
	}

	att, err := s.attendance.GetBySyncID(ctx, syncID)
	if err != nil {
		if errors.Is(err, ErrAttendanceNotFound) {
			return nil, fmt.Errorf("%w: attendance %s", sync.ErrNotFound, syncID)
		}
		return nil, fmt.Errorf("load attendance: %w", err)
	}

	// Частичное обновление: поля, отсутствующие в нагрузке, не трогаем.
	if data.Has("date") {
		if att.Date, err = data.Date("date"); err != nil {
			return nil, err
		}
	}
	if data.Has("status") {
		raw, err := data.String("status")
		if err != nil {
			return nil, err
		}
		if att.Status, err = ParseAttendanceStatus(raw); err != nil {
			return nil, err
		}
	}
	if data.Has("time_in") {
		if att.TimeIn, err = data.TimeOfDay("time_in"); err != nil {
			return nil, err
		}
	}
	if data.Has("time_out") {
		if att.TimeOut, err = data.TimeOfDay("time_out"); err != nil {
			return nil, err
		}
	}
	if notes, ok := data.OptString("notes"); ok {
		att.Notes = notes
	}

	att.MarkSynced(deviceID)
	if err := s.attendance.Update(ctx, att); err != nil {
		return nil, fmt.Errorf("update attendance: %w", err)
	}

	return s.serialize(att, sync.OpUpdate), nil
}

// resolveTeacher разрешает ссылку на учителя по teacher_sync_id; без
// ссылки берется первый сотрудник — так ведет себя устройство, еще не
// получившее справочник сотрудников.
func (s *AttendanceSync) resolveTeacher(ctx context.Context, data sync.Payload) (*Staff, error) {
	teacherSyncID, ok, err := data.OptUUID("teacher_sync_id")
	if err != nil {
		return nil, err
	}

	if ok {
		teacher, err := s.staff.GetBySyncID(ctx, teacherSyncID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: teacher %s", sync.ErrReferenceNotFound, teacherSyncID)
			}
			return nil, fmt.Errorf("resolve teacher: %w", err)
		}
		return teacher, nil
	}

	teacher, err := s.staff.First(ctx)
	if err != nil {
		if errors.Is(err, ErrNoStaff) {
			return nil, fmt.Errorf("%w: no teacher to attribute attendance to", sync.ErrReferenceNotFound)
		}
		return nil, fmt.Errorf("resolve teacher: %w", err)
	}
	return teacher, nil
}

// ChangesSince отдает посещаемость, измененную строго после отметки.
func (s *AttendanceSync) ChangesSince(ctx context.Context, since time.Time) ([]sync.Envelope, error) {
	records, err := s.attendance.ChangesSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("collect attendance changes: %w", err)
	}

	envelopes := make([]sync.Envelope, 0, len(records))
	for i := range records {
		envelopes = append(envelopes, *s.serialize(&records[i], sync.OpUpdate))
	}
	return envelopes, nil
}

func (s *AttendanceSync) serialize(a *TeacherAttendance, op sync.Operation) *sync.Envelope {
	data := sync.Payload{
		"sync_id":       a.SyncID.String(),
		"date":          a.Date.Format(sync.WireDate),
		"status":        string(a.Status),
		"notes":         a.Notes,
		"sync_status":   string(a.SyncStatus),
		"last_modified": a.LastModified.Format(time.RFC3339),
	}
	if a.TeacherSyncID != uuid.Nil {
		data["teacher_sync_id"] = a.TeacherSyncID.String()
	}
	if a.TimeIn != nil {
		data["time_in"] = sync.FormatTimeOfDay(a.TimeIn)
	}
	if a.TimeOut != nil {
		data["time_out"] = sync.FormatTimeOfDay(a.TimeOut)
	}
	return &sync.Envelope{
		Model:     sync.ModelTeacherAttendance,
		Operation: op,
		Data:      data,
	}
}

// StaffSync — применитель и сборщик конвертов staff. Натурального
// уникального ключа у сотрудников нет, так что ветка поглощения
// коллизий здесь отсутствует.
type StaffSync struct {
	staff Repository
	log   *slog.Logger
}

// NewStaffSync создает синхронизацию сотрудников.
func NewStaffSync(staff Repository, log *slog.Logger) *StaffSync {
	return &StaffSync{
		staff: staff,
		log:   log.With(slog.String("component", "staff_sync")),
	}
}

// Apply применяет один конверт staff.
func (s *StaffSync) Apply(ctx context.Context, op sync.Operation, data sync.Payload, deviceID string) (*sync.Envelope, error) {
	switch op {
	case sync.OpCreate:
		return s.applyCreate(ctx, data, deviceID)
	case sync.OpUpdate:
		return s.applyUpdate(ctx, data, deviceID)
	}
	return nil, fmt.Errorf("%w: %s", sync.ErrUnknownOperation, op)
}

func (s *StaffSync) applyCreate(ctx context.Context, data sync.Payload, deviceID string) (*sync.Envelope, error) {
	syncID, err := data.SyncID()
	if err != nil {
		return nil, err
	}

	if _, err := s.staff.GetBySyncID(ctx, syncID); err == nil {
		return nil, fmt.Errorf("%w: %s", sync.ErrDuplicate, syncID)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check existing staff: %w", err)
	}

	surname, err := data.String("surname")
	if err != nil {
		return nil, err
	}
	firstname, err := data.String("firstname")
	if err != nil {
		return nil, err
	}

	member := &Staff{
		CurrentStatus:   "active",
		Surname:         surname,
		Firstname:       firstname,
		Gender:          "male",
		DateOfBirth:     time.Now(),
		DateOfAdmission: time.Now(),
		Meta:            sync.Meta{SyncID: syncID},
	}
	member.OtherName, _ = data.OptString("other_name")
	member.MobileNumber, _ = data.OptString("mobile_number")
	member.Address, _ = data.OptString("address")
	if v, ok := data.OptString("current_status"); ok {
		member.CurrentStatus = v
	}
	if v, ok := data.OptString("gender"); ok {
		member.Gender = v
	}
	if data.Has("date_of_birth") {
		if member.DateOfBirth, err = data.Date("date_of_birth"); err != nil {
			return nil, err
		}
	}
	if data.Has("date_of_admission") {
		if member.DateOfAdmission, err = data.Date("date_of_admission"); err != nil {
			return nil, err
		}
	}
	member.MarkSynced(deviceID)

	if err := s.staff.Create(ctx, member); err != nil {
		return nil, fmt.Errorf("persist staff: %w", err)
	}

	return s.serialize(member, sync.OpCreate), nil
}

func (s *StaffSync) applyUpdate(ctx context.Context, data sync.Payload, deviceID string) (*sync.Envelope, error) {
	syncID, err := data.SyncID()
	if err != nil {
		return nil, err
	}

	member, err := s.staff.GetBySyncID(ctx, syncID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: staff %s", sync.ErrNotFound, syncID)
		}
		return nil, fmt.Errorf("load staff: %w", err)
	}

	if v, ok := data.OptString("current_status"); ok {
		member.CurrentStatus = v
	}
	if v, ok := data.OptString("surname"); ok {
		member.Surname = v
	}
	if v, ok := data.OptString("firstname"); ok {
		member.Firstname = v
	}
	if v, ok := data.OptString("other_name"); ok {
		member.OtherName = v
	}
	if v, ok := data.OptString("gender"); ok {
		member.Gender = v
	}
	if v, ok := data.OptString("mobile_number"); ok {
		member.MobileNumber = v
	}
	if v, ok := data.OptString("address"); ok {
		member.Address = v
	}
	if data.Has("date_of_birth") {
		if member.DateOfBirth, err = data.Date("date_of_birth"); err != nil {
			return nil, err
		}
	}
	if data.Has("date_of_admission") {
		if member.DateOfAdmission, err = data.Date("date_of_admission"); err != nil {
			return nil, err
		}
	}
	member.MarkSynced(deviceID)

	if err := s.staff.Update(ctx, member); err != nil {
		return nil, fmt.Errorf("update staff: %w", err)
	}

	return s.serialize(member, sync.OpUpdate), nil
}

// ChangesSince отдает сотрудников, измененных строго после отметки.
func (s *StaffSync) ChangesSince(ctx context.Context, since time.Time) ([]sync.Envelope, error) {
	members, err := s.staff.ChangesSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("collect staff changes: %w", err)
	}

	envelopes := make([]sync.Envelope, 0, len(members))
	for i := range members {
		envelopes = append(envelopes, *s.serialize(&members[i], sync.OpUpdate))
	}
	return envelopes, nil
}

func (s *StaffSync) serialize(m *Staff, op sync.Operation) *sync.Envelope {
	return &sync.Envelope{
		Model:     sync.ModelStaff,
		Operation: op,
		Data: sync.Payload{
			"sync_id":           m.SyncID.String(),
			"current_status":    m.CurrentStatus,
			"surname":           m.Surname,
			"firstname":         m.Firstname,
			"other_name":        m.OtherName,
			"gender":            m.Gender,
			"date_of_birth":     m.DateOfBirth.Format(sync.WireDate),
			"date_of_admission": m.DateOfAdmission.Format(sync.WireDate),
			"mobile_number":     m.MobileNumber,
			"address":           m.Address,
			"sync_status":       string(m.SyncStatus),
			"last_modified":     m.LastModified.Format(time.RFC3339),
		},
	}
}
