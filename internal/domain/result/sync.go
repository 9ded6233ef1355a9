package result

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"github.com/jtoza/school-sync-pro/internal/domain/sync"
)

// Sync — применитель и сборщик конвертов result.
type Sync struct {
	results  Repository
	students StudentResolver
	log      *slog.Logger
}

// NewSync создает синхронизацию оценок.
func NewSync(results Repository, students StudentResolver, log *slog.Logger) *Sync {
	return &Sync{
		results:  results,
		students: students,
		log:      log.With(slog.String("component", "result_sync")),
	}
}

// Apply применяет один конверт result.
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

	if _, err := s.results.GetBySyncID(ctx, syncID); err == nil {
		return nil, fmt.Errorf("%w: %s", sync.ErrDuplicate, syncID)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check existing result: %w", err)
	}

	studentSyncID, err := data.UUID("student_sync_id")
	if err != nil {
		return nil, err
	}
	studentID, err := s.students.ResolveStudent(ctx, studentSyncID)
	if err != nil {
		return nil, err
	}

	res := &Result{
		StudentID:     studentID,
		StudentSyncID: studentSyncID,
		Meta:          sync.Meta{SyncID: syncID},
	}
	res.Session, _ = data.OptString("session")
	res.Term, _ = data.OptString("term")
	res.CurrentClass, _ = data.OptString("current_class")
	res.Subject, _ = data.OptString("subject")
	res.TestScore, _ = data.OptInt("test_score")
	res.ExamScore, _ = data.OptInt("exam_score")
	res.TeacherComment, _ = data.OptString("teacher_comment")
	res.HeadteacherComment, _ = data.OptString("headteacher_comment")

	if err := res.Validate(); err != nil {
		return nil, err
	}
	res.MarkSynced(deviceID)

	if err := s.results.Create(ctx, res); err != nil {
		return nil, fmt.Errorf("persist result: %w", err)
	}

	return s.serialize(res, sync.OpCreate), nil
}

func (s *Sync) applyUpdate(ctx context.Context, data sync.Payload, deviceID string) (*sync.Envelope, error) {
	syncID, err := data.SyncID()
	if err != nil {
		return nil, err
	}

	res, err := s.results.GetBySyncID(ctx, syncID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: result %s", sync.ErrNotFound, syncID)
		}
		return nil, fmt.Errorf("load result: %w", err)
	}

	if v, ok := data.OptString("session"); ok {
		res.Session = v
	}
	if v, ok := data.OptString("term"); ok {
		res.Term = v
	}
	if v, ok := data.OptString("current_class"); ok {
		res.CurrentClass = v
	}
	if v, ok := data.OptString("subject"); ok {
		res.Subject = v
	}
	if data.Has("test_score") {
		if res.TestScore, err = data.Int("test_score"); err != nil {
			return nil, err
		}
	}
	if data.Has("exam_score") {
		if res.ExamScore, err = data.Int("exam_score"); err != nil {
			return nil, err
		}
	}
	if v, ok := data.OptString("teacher_comment"); ok {
		res.TeacherComment = v
	}
	if v, ok := data.OptString("headteacher_comment"); ok {
		res.HeadteacherComment = v
	}

	if err := res.Validate(); err != nil {
		return nil, err
	}
	res.MarkSynced(deviceID)

	if err := s.results.Update(ctx, res); err != nil {
		return nil, fmt.Errorf("update result: %w", err)
	}

	return s.serialize(res, sync.OpUpdate), nil
}

// ChangesSince отдает оценки, измененные строго после отметки.
func (s *Sync) ChangesSince(ctx context.Context, since time.Time) ([]sync.Envelope, error) {
	results, err := s.results.ChangesSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("collect result changes: %w", err)
	}

	envelopes := make([]sync.Envelope, 0, len(results))
	for i := range results {
		envelopes = append(envelopes, *s.serialize(&results[i], sync.OpUpdate))
	}
	return envelopes, nil
}

func (s *Sync) serialize(r *Result, op sync.Operation) *sync.Envelope {
	return &sync.Envelope{
		Model:     sync.ModelResult,
		Operation: op,
		Data: sync.Payload{
			"sync_id":             r.SyncID.String(),
			"student_sync_id":     r.StudentSyncID.String(),
			"session":             r.Session,
			"term":                r.Term,
			"current_class":       r.CurrentClass,
			"subject":             r.Subject,
			"test_score":          r.TestScore,
			"exam_score":          r.ExamScore,
			"total_score":         r.TotalScore(),
			"grade":               r.Grade(),
			"teacher_comment":     r.TeacherComment,
			"headteacher_comment": r.HeadteacherComment,
			"sync_status":         string(r.SyncStatus),
			"last_modified":       r.LastModified.Format(time.RFC3339),
		},
	}
}
