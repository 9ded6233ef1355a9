package student

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"github.com/jtoza/school-sync-pro/internal/domain/sync"
)

// Sync — применитель и сборщик конвертов student.
type Sync struct {
	students Repository
	log      *slog.Logger
}

// NewSync создает синхронизацию учеников.
func NewSync(students Repository, log *slog.Logger) *Sync {
	return &Sync{
		students: students,
		log:      log.With(slog.String("component", "student_sync")),
	}
}

// Apply применяет один конверт student.
func (s *Sync) Apply(ctx context.Context, op sync.Operation, data sync.Payload, deviceID string) (*sync.Envelope, error) {
	switch op {
	case sync.OpCreate:
		return s.applyCreate(ctx, data, deviceID)
	case sync.OpUpdate:
		return s.applyUpdate(ctx, data, deviceID)
	}
	return nil, fmt.Errorf("%w: %s", sync.ErrUnknownOperation, op)
}

func (s *Sync) applyCreate(ctx context.Context, data sync.Payload, deviceID string) (*sync.Envelope, error) {
	syncID, err := data.SyncID()
	if err != nil {
		return nil, err
	}

	if _, err := s.students.GetBySyncID(ctx, syncID); err == nil {
		return nil, fmt.Errorf("%w: %s", sync.ErrDuplicate, syncID)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check existing student: %w", err)
	}

	regNumber, err := data.String("registration_number")
	if err != nil {
		return nil, err
	}
	surname, err := data.String("surname")
	if err != nil {
		return nil, err
	}
	firstname, err := data.String("firstname")
	if err != nil {
		return nil, err
	}

	st := &Student{
		CurrentStatus:      "active",
		RegistrationNumber: regNumber,
		Surname:            surname,
		Firstname:          firstname,
		Gender:             "male",
		DateOfBirth:        time.Now(),
		DateOfAdmission:    time.Now(),
		Meta:               sync.Meta{SyncID: syncID},
	}
	s.applyOptional(st, data)
	if err := s.applyDates(st, data); err != nil {
		return nil, err
	}
	st.MarkSynced(deviceID)

	// Совпавший регистрационный номер — тот же ученик, заведенный с
	// другого устройства: строка перезаписывается, sync_id переезжает
	// на входящий, исход подтверждается как update.
	merged, err := s.students.CreateMerging(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("persist student: %w", err)
	}

	outcome := sync.OpCreate
	if merged {
		outcome = sync.OpUpdate
		s.log.Info("student create merged into existing record",
			slog.String("registration_number", regNumber),
			slog.String("sync_id", syncID.String()),
		)
	}

	return s.serialize(st, outcome), nil
}

func (s *Sync) applyUpdate(ctx context.Context, data sync.Payload, deviceID string) (*sync.Envelope, error) {
	syncID, err := data.SyncID()
	if err != nil {
		return nil, err
	}

	st, err := s.students.GetBySyncID(ctx, syncID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: student %s", sync.ErrNotFound, syncID)
		}
		return nil, fmt.Errorf("load student: %w", err)
	}

	if v, ok := data.OptString("registration_number"); ok {
		st.RegistrationNumber = v
	}
	if v, ok := data.OptString("surname"); ok {
		st.Surname = v
	}
	if v, ok := data.OptString("firstname"); ok {
		st.Firstname = v
	}
	s.applyOptional(st, data)
	if err := s.applyDates(st, data); err != nil {
		return nil, err
	}
	st.MarkSynced(deviceID)

	if err := s.students.Update(ctx, st); err != nil {
		return nil, fmt.Errorf("update student: %w", err)
	}

	return s.serialize(st, sync.OpUpdate), nil
}

func (s *Sync) applyOptional(st *Student, data sync.Payload) {
	if v, ok := data.OptString("current_status"); ok {
		st.CurrentStatus = v
	}
	if v, ok := data.OptString("other_name"); ok {
		st.OtherName = v
	}
	if v, ok := data.OptString("gender"); ok {
		st.Gender = v
	}
	if v, ok := data.OptString("parent_mobile_number"); ok {
		st.ParentMobileNumber = v
	}
	if v, ok := data.OptString("guardian_name"); ok {
		st.GuardianName = v
	}
	if v, ok := data.OptString("guardian_phone"); ok {
		st.GuardianPhone = v
	}
	if v, ok := data.OptString("address"); ok {
		st.Address = v
	}
}

func (s *Sync) applyDates(st *Student, data sync.Payload) error {
	var err error
	if data.Has("date_of_birth") {
		if st.DateOfBirth, err = data.Date("date_of_birth"); err != nil {
			return err
		}
	}
	if data.Has("date_of_admission") {
		if st.DateOfAdmission, err = data.Date("date_of_admission"); err != nil {
			return err
		}
	}
	return nil
}

// ChangesSince отдает учеников, измененных строго после отметки.
func (s *Sync) ChangesSince(ctx context.Context, since time.Time) ([]sync.Envelope, error) {
	students, err := s.students.ChangesSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("collect student changes: %w", err)
	}

	envelopes := make([]sync.Envelope, 0, len(students))
	for i := range students {
		envelopes = append(envelopes, *s.serialize(&students[i], sync.OpUpdate))
	}
	return envelopes, nil
}

func (s *Sync) serialize(st *Student, op sync.Operation) *sync.Envelope {
	return &sync.Envelope{
		Model:     sync.ModelStudent,
		Operation: op,
		Data: sync.Payload{
			"sync_id":              st.SyncID.String(),
			"current_status":       st.CurrentStatus,
			"registration_number":  st.RegistrationNumber,
			"surname":              st.Surname,
			"firstname":            st.Firstname,
			"other_name":           st.OtherName,
			"gender":               st.Gender,
			"date_of_birth":        st.DateOfBirth.Format(sync.WireDate),
			"date_of_admission":    st.DateOfAdmission.Format(sync.WireDate),
			"parent_mobile_number": st.ParentMobileNumber,
			"guardian_name":        st.GuardianName,
			"guardian_phone":       st.GuardianPhone,
			"address":              st.Address,
			"sync_status":          string(st.SyncStatus),
			"last_modified":        st.LastModified.Format(time.RFC3339),
		},
	}
}
