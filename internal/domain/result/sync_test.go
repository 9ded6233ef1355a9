package result

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"github.com/jtoza/school-sync-pro/internal/domain/sync"
)

// MockRepository — мок для интерфейса Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetBySyncID(ctx context.Context, syncID uuid.UUID) (*Result, error) {
	args := m.Called(ctx, syncID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Result), args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, r *Result) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRepository) Update(ctx context.Context, r *Result) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRepository) ChangesSince(ctx context.Context, since time.Time) ([]Result, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Result), args.Error(1)
}

// MockStudentResolver — мок для интерфейса StudentResolver
type MockStudentResolver struct {
	mock.Mock
}

func (m *MockStudentResolver) ResolveStudent(ctx context.Context, syncID uuid.UUID) (int, error) {
	args := m.Called(ctx, syncID)
	return args.Int(0), args.Error(1)
}

func TestSync_ApplyCreate(t *testing.T) {
	syncID := uuid.New()
	studentSyncID := uuid.New()

	repo := new(MockRepository)
	resolver := new(MockStudentResolver)
	repo.On("GetBySyncID", mock.Anything, syncID).Return(nil, ErrNotFound)
	resolver.On("ResolveStudent", mock.Anything, studentSyncID).Return(12, nil)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*result.Result")).Return(nil)

	s := NewSync(repo, resolver, slog.Default())

	echo, err := s.Apply(context.Background(), sync.OpCreate, sync.Payload{
		"sync_id":         syncID.String(),
		"student_sync_id": studentSyncID.String(),
		"session":         "2023/2024",
		"term":            "first",
		"current_class":   "JSS2",
		"subject":         "Mathematics",
		"test_score":      float64(35),
		"exam_score":      float64(48),
	}, "tablet-1")

	require.NoError(t, err)
	require.NotNil(t, echo)
	assert.Equal(t, sync.ModelResult, echo.Model)
	assert.Equal(t, sync.OpCreate, echo.Operation)
	assert.Equal(t, 83, echo.Data["total_score"])
	assert.Equal(t, "Exceeding", echo.Data["grade"])
	assert.Equal(t, studentSyncID.String(), echo.Data["student_sync_id"])

	saved := repo.Calls[1].Arguments.Get(1).(*Result)
	assert.Equal(t, 12, saved.StudentID)
	assert.Equal(t, sync.StatusSynced, saved.SyncStatus)
	assert.Equal(t, "tablet-1", saved.DeviceID)
	repo.AssertExpectations(t)
}

func TestSync_ApplyCreate_Duplicate(t *testing.T) {
	syncID := uuid.New()

	repo := new(MockRepository)
	repo.On("GetBySyncID", mock.Anything, syncID).
		Return(&Result{Meta: sync.Meta{SyncID: syncID}}, nil)

	s := NewSync(repo, new(MockStudentResolver), slog.Default())

	_, err := s.Apply(context.Background(), sync.OpCreate, sync.Payload{
		"sync_id":         syncID.String(),
		"student_sync_id": uuid.NewString(),
	}, "tablet-1")

	assert.ErrorIs(t, err, sync.ErrDuplicate)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSync_ApplyCreate_StudentNotFound(t *testing.T) {
	syncID := uuid.New()
	studentSyncID := uuid.New()

	repo := new(MockRepository)
	resolver := new(MockStudentResolver)
	repo.On("GetBySyncID", mock.Anything, syncID).Return(nil, ErrNotFound)
	resolver.On("ResolveStudent", mock.Anything, studentSyncID).
		Return(0, sync.ErrReferenceNotFound)

	s := NewSync(repo, resolver, slog.Default())

	_, err := s.Apply(context.Background(), sync.OpCreate, sync.Payload{
		"sync_id":         syncID.String(),
		"student_sync_id": studentSyncID.String(),
		"subject":         "Mathematics",
	}, "tablet-1")

	assert.ErrorIs(t, err, sync.ErrReferenceNotFound)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSync_ApplyCreate_ScoreOutOfRange(t *testing.T) {
	syncID := uuid.New()
	studentSyncID := uuid.New()

	repo := new(MockRepository)
	resolver := new(MockStudentResolver)
	repo.On("GetBySyncID", mock.Anything, syncID).Return(nil, ErrNotFound)
	resolver.On("ResolveStudent", mock.Anything, studentSyncID).Return(12, nil)

	s := NewSync(repo, resolver, slog.Default())

	_, err := s.Apply(context.Background(), sync.OpCreate, sync.Payload{
		"sync_id":         syncID.String(),
		"student_sync_id": studentSyncID.String(),
		"subject":         "Mathematics",
		"test_score":      float64(41),
		"exam_score":      float64(20),
	}, "tablet-1")

	assert.ErrorIs(t, err, sync.ErrInvalidField)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSync_ApplyUpdate_Partial(t *testing.T) {
	syncID := uuid.New()
	existing := &Result{
		ID:            5,
		StudentID:     12,
		StudentSyncID: uuid.New(),
		Session:       "2023/2024",
		Term:          "first",
		Subject:       "Mathematics",
		TestScore:     30,
		ExamScore:     25,
		Meta:          sync.Meta{SyncID: syncID},
	}

	repo := new(MockRepository)
	repo.On("GetBySyncID", mock.Anything, syncID).Return(existing, nil)
	repo.On("Update", mock.Anything, mock.AnythingOfType("*result.Result")).Return(nil)

	s := NewSync(repo, new(MockStudentResolver), slog.Default())

	echo, err := s.Apply(context.Background(), sync.OpUpdate, sync.Payload{
		"sync_id":    syncID.String(),
		"exam_score": float64(45),
	}, "tablet-1")

	require.NoError(t, err)
	assert.Equal(t, 45, echo.Data["exam_score"])
	// Незатронутый балл сохраняется, итог пересчитывается
	assert.Equal(t, 30, echo.Data["test_score"])
	assert.Equal(t, 75, echo.Data["total_score"])
	assert.Equal(t, "EE", echo.Data["grade"])
	repo.AssertExpectations(t)
}

func TestSync_ApplyUpdate_InvalidScoreRejected(t *testing.T) {
	syncID := uuid.New()
	existing := &Result{
		TestScore: 30,
		ExamScore: 25,
		Meta:      sync.Meta{SyncID: syncID},
	}

	repo := new(MockRepository)
	repo.On("GetBySyncID", mock.Anything, syncID).Return(existing, nil)

	s := NewSync(repo, new(MockStudentResolver), slog.Default())

	_, err := s.Apply(context.Background(), sync.OpUpdate, sync.Payload{
		"sync_id":    syncID.String(),
		"exam_score": float64(61),
	}, "tablet-1")

	assert.ErrorIs(t, err, sync.ErrInvalidField)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestSync_ApplyUpdate_NotFound(t *testing.T) {
	syncID := uuid.New()

	repo := new(MockRepository)
	repo.On("GetBySyncID", mock.Anything, syncID).Return(nil, ErrNotFound)

	s := NewSync(repo, new(MockStudentResolver), slog.Default())

	_, err := s.Apply(context.Background(), sync.OpUpdate, sync.Payload{
		"sync_id": syncID.String(),
	}, "tablet-1")

	assert.ErrorIs(t, err, sync.ErrNotFound)
}

func TestSync_ChangesSince(t *testing.T) {
	since := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	results := []Result{
		{
			StudentSyncID: uuid.New(),
			Subject:       "English",
			TestScore:     20,
			ExamScore:     22,
			Meta: sync.Meta{
				SyncID:       uuid.New(),
				SyncStatus:   sync.StatusSynced,
				LastModified: since.Add(time.Hour),
			},
		},
	}

	repo := new(MockRepository)
	repo.On("ChangesSince", mock.Anything, since).Return(results, nil)

	s := NewSync(repo, new(MockStudentResolver), slog.Default())

	envelopes, err := s.ChangesSince(context.Background(), since)

	require.NoError(t, err)
	require.Len(t, envelopes, 1)
	assert.Equal(t, sync.ModelResult, envelopes[0].Model)
	assert.Equal(t, 42, envelopes[0].Data["total_score"])
	assert.Equal(t, "BE", envelopes[0].Data["grade"])
}

func TestScoreGrade_Bands(t *testing.T) {
	cases := []struct {
		total int
		grade string
	}{
		{100, "Exceeding"}, {80, "Exceeding"},
		{79, "EE"}, {70, "EE"},
		{69, "ME"}, {60, "ME"},
		{59, "AE"}, {50, "AE"},
		{49, "BE"}, {0, "BE"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.grade, ScoreGrade(tc.total), "total %d", tc.total)
	}
}
