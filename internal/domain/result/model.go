package result

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jtoza/school-sync-pro/internal/domain/sync"
)

// Предельные баллы: текущая аттестация из 40, экзамен из 60.
const (
	MaxTestScore = 40
	MaxExamScore = 60
)

// Result — оценка ученика по предмету за учебный период.
type Result struct {
	ID                 int       `json:"-"`
	StudentID          int       `json:"-"`
	StudentSyncID      uuid.UUID `json:"student_sync_id"`
	Session            string    `json:"session"`
	Term               string    `json:"term"`
	CurrentClass       string    `json:"current_class"`
	Subject            string    `json:"subject"`
	TestScore          int       `json:"test_score"`
	ExamScore          int       `json:"exam_score"`
	TeacherComment     string    `json:"teacher_comment,omitempty"`
	HeadteacherComment string    `json:"headteacher_comment,omitempty"`

	sync.Meta
}

// Validate проверяет баллы на допустимые пределы.
func (r *Result) Validate() error {
	if r.TestScore < 0 || r.TestScore > MaxTestScore {
		return fmt.Errorf("%w: test_score %d is out of 0..%d", sync.ErrInvalidField, r.TestScore, MaxTestScore)
	}
	if r.ExamScore < 0 || r.ExamScore > MaxExamScore {
		return fmt.Errorf("%w: exam_score %d is out of 0..%d", sync.ErrInvalidField, r.ExamScore, MaxExamScore)
	}
	return nil
}

// TotalScore возвращает суммарный балл из 100.
func (r *Result) TotalScore() int {
	return r.TestScore + r.ExamScore
}

// Grade возвращает оценочную полосу суммарного балла.
func (r *Result) Grade() string {
	return ScoreGrade(r.TotalScore())
}

// ScoreGrade раскладывает суммарный балл по оценочным полосам школы:
// Exceeding, EE, ME, AE, BE.
func ScoreGrade(total int) string {
	switch {
	case total >= 80:
		return "Exceeding"
	case total >= 70:
		return "EE"
	case total >= 60:
		return "ME"
	case total >= 50:
		return "AE"
	default:
		return "BE"
	}
}
