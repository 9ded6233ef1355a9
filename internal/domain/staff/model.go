package staff

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jtoza/school-sync-pro/internal/domain/sync"
)

// Staff — сотрудник школы.
type Staff struct {
	ID              int       `json:"-"`
	CurrentStatus   string    `json:"current_status"`
	Surname         string    `json:"surname"`
	Firstname       string    `json:"firstname"`
	OtherName       string    `json:"other_name,omitempty"`
	Gender          string    `json:"gender"`
	DateOfBirth     time.Time `json:"date_of_birth"`
	DateOfAdmission time.Time `json:"date_of_admission"`
	MobileNumber    string    `json:"mobile_number,omitempty"`
	Address         string    `json:"address,omitempty"`

	sync.Meta
}

// FullName возвращает полное имя сотрудника.
func (s *Staff) FullName() string {
	names := []string{s.Firstname, s.Surname}
	if s.OtherName != "" {
		names = append(names, s.OtherName)
	}
	return strings.Join(names, " ")
}

// AttendanceStatus — отметка посещаемости за день.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceHalfDay AttendanceStatus = "half_day"
	AttendanceLeave   AttendanceStatus = "leave"
)

// ParseAttendanceStatus проверяет и возвращает отметку посещаемости.
func ParseAttendanceStatus(s string) (AttendanceStatus, error) {
	switch status := AttendanceStatus(s); status {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceHalfDay, AttendanceLeave:
		return status, nil
	}
	return "", fmt.Errorf("%w: attendance status %q", sync.ErrInvalidField, s)
}

// TeacherAttendance — посещаемость учителя за день. Натуральный ключ
// учитель+дата: одна запись на учителя в день.
type TeacherAttendance struct {
	ID            int              `json:"-"`
	TeacherID     int              `json:"-"`
	TeacherSyncID uuid.UUID        `json:"teacher_sync_id"`
	Date          time.Time        `json:"date"`
	Status        AttendanceStatus `json:"status"`
	TimeIn        *time.Time       `json:"time_in,omitempty"`
	TimeOut       *time.Time       `json:"time_out,omitempty"`
	Notes         string           `json:"notes,omitempty"`

	sync.Meta
}

// HoursWorked возвращает отработанные часы, когда отмечены оба времени.
func (a *TeacherAttendance) HoursWorked() (float64, bool) {
	if a.TimeIn == nil || a.TimeOut == nil {
		return 0, false
	}
	return a.TimeOut.Sub(*a.TimeIn).Hours(), true
}
