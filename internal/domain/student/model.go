package student

import (
	"strings"
	"time"

	"github.com/jtoza/school-sync-pro/internal/domain/sync"
)

// Student — ученик. Натуральный ключ — регистрационный номер,
// уникальный в пределах школы.
type Student struct {
	ID                 int       `json:"-"`
	CurrentStatus      string    `json:"current_status"`
	RegistrationNumber string    `json:"registration_number"`
	Surname            string    `json:"surname"`
	Firstname          string    `json:"firstname"`
	OtherName          string    `json:"other_name,omitempty"`
	Gender             string    `json:"gender"`
	DateOfBirth        time.Time `json:"date_of_birth"`
	DateOfAdmission    time.Time `json:"date_of_admission"`
	ParentMobileNumber string    `json:"parent_mobile_number,omitempty"`
	GuardianName       string    `json:"guardian_name,omitempty"`
	GuardianPhone      string    `json:"guardian_phone,omitempty"`
	Address            string    `json:"address,omitempty"`

	sync.Meta
}

// FullName возвращает полное имя ученика.
func (s *Student) FullName() string {
	names := []string{s.Surname, s.Firstname}
	if s.OtherName != "" {
		names = append(names, s.OtherName)
	}
	return strings.Join(names, " ")
}
