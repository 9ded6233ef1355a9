package student

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

func (m *MockRepository) GetBySyncID(ctx context.Context, syncID uuid.UUID) (*Student, error) {
	args := m.Called(ctx, syncID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Student), args.Error(1)
}

func (m *MockRepository) CreateMerging(ctx context.Context, s *Student) (bool, error) {
	args := m.Called(ctx, s)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, s *Student) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockRepository) ChangesSince(ctx context.Context, since time.Time) ([]Student, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Student), args.Error(1)
}

func TestSync_ApplyCreate(t *testing.T) {
	syncID := uuid.New()

	repo := new(MockRepository)
	repo.On("GetBySyncID", mock.Anything, syncID).Return(nil, ErrNotFound)
	repo.On("CreateMerging", mock.Anything, mock.AnythingOfType("*student.Student")).
		Return(false, nil)

	s := NewSync(repo, slog.Default())

	echo, err := s.Apply(context.Background(), sync.OpCreate, sync.Payload{
		"sync_id":             syncID.String(),
		"registration_number": "STU-2024-0042",
		"surname":             "Okafor",
		"firstname":           "Chinedu",
		"gender":              "male",
		"date_of_birth":       "2012-06-15",
		"date_of_admission":   "2020-09-01",
		"guardian_name":       "Ngozi Okafor",
	}, "tablet-1")

	require.NoError(t, err)
	require.NotNil(t, echo)
	assert.Equal(t, sync.ModelStudent, echo.Model)
	assert.Equal(t, sync.OpCreate, echo.Operation)
	assert.Equal(t, "STU-2024-0042", echo.Data["registration_number"])
	assert.Equal(t, "2012-06-15", echo.Data["date_of_birth"])
	assert.Equal(t, string(sync.StatusSynced), echo.Data["sync_status"])

	saved := repo.Calls[1].Arguments.Get(1).(*Student)
	assert.Equal(t, "active", saved.CurrentStatus)
	assert.Equal(t, "Ngozi Okafor", saved.GuardianName)
	assert.Equal(t, "tablet-1", saved.DeviceID)
	repo.AssertExpectations(t)
}

func TestSync_ApplyCreate_Duplicate(t *testing.T) {
	syncID := uuid.New()

	repo := new(MockRepository)
	repo.On("GetBySyncID", mock.Anything, syncID).
		Return(&Student{Meta: sync.Meta{SyncID: syncID}}, nil)

	s := NewSync(repo, slog.Default())

	_, err := s.Apply(context.Background(), sync.OpCreate, sync.Payload{
		"sync_id":             syncID.String(),
		"registration_number": "STU-2024-0042",
		"surname":             "Okafor",
		"firstname":           "Chinedu",
	}, "tablet-1")

	assert.ErrorIs(t, err, sync.ErrDuplicate)
	repo.AssertNotCalled(t, "CreateMerging", mock.Anything, mock.Anything)
}

func TestSync_ApplyCreate_MergedOnRegistrationNumber(t *testing.T) {
	syncID := uuid.New()

	repo := new(MockRepository)
	repo.On("GetBySyncID", mock.Anything, syncID).Return(nil, ErrNotFound)
	// Номер уже занят: хранилище перезаписало существующую строку
	repo.On("CreateMerging", mock.Anything, mock.AnythingOfType("*student.Student")).
		Return(true, nil)

	s := NewSync(repo, slog.Default())

	echo, err := s.Apply(context.Background(), sync.OpCreate, sync.Payload{
		"sync_id":             syncID.String(),
		"registration_number": "STU-2024-0042",
		"surname":             "Okafor",
		"firstname":           "Chinedu",
	}, "tablet-2")

	require.NoError(t, err)
	// Поглощенный create подтверждается как update
	assert.Equal(t, sync.OpUpdate, echo.Operation)
	assert.Equal(t, syncID.String(), echo.Data["sync_id"])
}

func TestSync_ApplyCreate_MissingRequiredField(t *testing.T) {
	syncID := uuid.New()

	repo := new(MockRepository)
	repo.On("GetBySyncID", mock.Anything, syncID).Return(nil, ErrNotFound)

	s := NewSync(repo, slog.Default())

	_, err := s.Apply(context.Background(), sync.OpCreate, sync.Payload{
		"sync_id": syncID.String(),
		"surname": "Okafor",
	}, "tablet-1")

	assert.ErrorIs(t, err, sync.ErrMissingField)
	repo.AssertNotCalled(t, "CreateMerging", mock.Anything, mock.Anything)
}

func TestSync_ApplyCreate_BadDate(t *testing.T) {
	syncID := uuid.New()

	repo := new(MockRepository)
	repo.On("GetBySyncID", mock.Anything, syncID).Return(nil, ErrNotFound)

	s := NewSync(repo, slog.Default())

	_, err := s.Apply(context.Background(), sync.OpCreate, sync.Payload{
		"sync_id":             syncID.String(),
		"registration_number": "STU-2024-0042",
		"surname":             "Okafor",
		"firstname":           "Chinedu",
		"date_of_birth":       "15/06/2012",
	}, "tablet-1")

	assert.ErrorIs(t, err, sync.ErrInvalidField)
	repo.AssertNotCalled(t, "CreateMerging", mock.Anything, mock.Anything)
}

func TestSync_ApplyUpdate_Partial(t *testing.T) {
	syncID := uuid.New()
	existing := &Student{
		ID:                 3,
		CurrentStatus:      "active",
		RegistrationNumber: "STU-2024-0042",
		Surname:            "Okafor",
		Firstname:          "Chinedu",
		Gender:             "male",
		DateOfBirth:        time.Date(2012, 6, 15, 0, 0, 0, 0, time.UTC),
		DateOfAdmission:    time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC),
		Meta:               sync.Meta{SyncID: syncID},
	}

	repo := new(MockRepository)
	repo.On("GetBySyncID", mock.Anything, syncID).Return(existing, nil)
	repo.On("Update", mock.Anything, mock.AnythingOfType("*student.Student")).Return(nil)

	s := NewSync(repo, slog.Default())

	echo, err := s.Apply(context.Background(), sync.OpUpdate, sync.Payload{
		"sync_id":        syncID.String(),
		"current_status": "graduated",
	}, "tablet-1")

	require.NoError(t, err)
	assert.Equal(t, "graduated", echo.Data["current_status"])
	// Незатронутые поля сохраняют прежние значения
	assert.Equal(t, "Okafor", echo.Data["surname"])
	assert.Equal(t, "2012-06-15", echo.Data["date_of_birth"])
	repo.AssertExpectations(t)
}

func TestSync_ApplyUpdate_NotFound(t *testing.T) {
	syncID := uuid.New()

	repo := new(MockRepository)
	repo.On("GetBySyncID", mock.Anything, syncID).Return(nil, ErrNotFound)

	s := NewSync(repo, slog.Default())

	_, err := s.Apply(context.Background(), sync.OpUpdate, sync.Payload{
		"sync_id": syncID.String(),
		"surname": "Adebayo",
	}, "tablet-1")

	assert.ErrorIs(t, err, sync.ErrNotFound)
}

func TestSync_UnknownOperation(t *testing.T) {
	s := NewSync(new(MockRepository), slog.Default())

	_, err := s.Apply(context.Background(), sync.Operation("delete"), sync.Payload{
		"sync_id": uuid.NewString(),
	}, "tablet-1")

	assert.ErrorIs(t, err, sync.ErrUnknownOperation)
}

func TestSync_ChangesSince(t *testing.T) {
	since := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	students := []Student{
		{
			RegistrationNumber: "STU-2024-0042",
			Surname:            "Okafor",
			Firstname:          "Chinedu",
			Meta: sync.Meta{
				SyncID:       uuid.New(),
				SyncStatus:   sync.StatusSynced,
				LastModified: since.Add(time.Hour),
			},
		},
	}

	repo := new(MockRepository)
	repo.On("ChangesSince", mock.Anything, since).Return(students, nil)

	s := NewSync(repo, slog.Default())

	envelopes, err := s.ChangesSince(context.Background(), since)

	require.NoError(t, err)
	require.Len(t, envelopes, 1)
	assert.Equal(t, sync.ModelStudent, envelopes[0].Model)
	assert.Equal(t, sync.OpUpdate, envelopes[0].Operation)
	assert.Equal(t, "STU-2024-0042", envelopes[0].Data["registration_number"])
}
