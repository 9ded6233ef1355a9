package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

// MockApplier — мок для интерфейса Applier
type MockApplier struct {
	mock.Mock
}

func (m *MockApplier) Apply(ctx context.Context, op Operation, data Payload, deviceID string) (*Envelope, error) {
	args := m.Called(ctx, op, data, deviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Envelope), args.Error(1)
}

// MockCollector — мок для интерфейса Collector
type MockCollector struct {
	mock.Mock
}

func (m *MockCollector) ChangesSince(ctx context.Context, since time.Time) ([]Envelope, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Envelope), args.Error(1)
}

func echoEnvelope(m Model, op Operation, syncID string) *Envelope {
	return &Envelope{
		Model:     m,
		Operation: op,
		Data:      Payload{"sync_id": syncID},
	}
}

func TestService_ProcessBatch_RequiresDeviceID(t *testing.T) {
	svc := NewService(NewRegistry(), slog.Default())

	_, err := svc.ProcessBatch(context.Background(), BatchRequest{})

	assert.ErrorIs(t, err, ErrMissingField)
}

func TestService_ProcessBatch_AppliesInOrder(t *testing.T) {
	applier := new(MockApplier)
	registry := NewRegistry()
	registry.MustRegister(ModelStudent, Capability{Applier: applier})

	first := Payload{"sync_id": uuid.NewString(), "surname": "A"}
	second := Payload{"sync_id": uuid.NewString(), "surname": "B"}

	applier.On("Apply", mock.Anything, OpCreate, first, "tablet-1").
		Return(echoEnvelope(ModelStudent, OpCreate, first["sync_id"].(string)), nil)
	applier.On("Apply", mock.Anything, OpUpdate, second, "tablet-1").
		Return(echoEnvelope(ModelStudent, OpUpdate, second["sync_id"].(string)), nil)

	svc := NewService(registry, slog.Default())

	resp, err := svc.ProcessBatch(context.Background(), BatchRequest{
		DeviceID: "tablet-1",
		Changes: []Envelope{
			{Model: ModelStudent, Operation: OpCreate, Data: first},
			{Model: ModelStudent, Operation: OpUpdate, Data: second},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, StatusResponseSuccess, resp.Status)
	require.Len(t, resp.ProcessedChanges, 2)
	// Порядок пакета сохраняется
	assert.Equal(t, first["sync_id"], resp.ProcessedChanges[0].Data["sync_id"])
	assert.Equal(t, second["sync_id"], resp.ProcessedChanges[1].Data["sync_id"])
	assert.False(t, resp.ServerTime.IsZero())
}

func TestService_ProcessBatch_FailureIsolation(t *testing.T) {
	applier := new(MockApplier)
	registry := NewRegistry()
	registry.MustRegister(ModelStudent, Capability{Applier: applier})

	bad := Payload{"sync_id": uuid.NewString()}
	good := Payload{"sync_id": uuid.NewString(), "surname": "Okafor"}

	applier.On("Apply", mock.Anything, OpCreate, bad, "tablet-1").
		Return(nil, ErrMissingField)
	applier.On("Apply", mock.Anything, OpCreate, good, "tablet-1").
		Return(echoEnvelope(ModelStudent, OpCreate, good["sync_id"].(string)), nil)

	svc := NewService(registry, slog.Default())

	resp, err := svc.ProcessBatch(context.Background(), BatchRequest{
		DeviceID: "tablet-1",
		Changes: []Envelope{
			{Model: ModelStudent, Operation: OpCreate, Data: bad},
			{Model: ModelStudent, Operation: OpCreate, Data: good},
		},
	})

	// Отказ одного конверта не роняет пакет
	require.NoError(t, err)
	assert.Equal(t, StatusResponseSuccess, resp.Status)
	require.Len(t, resp.ProcessedChanges, 1)
	assert.Equal(t, good["sync_id"], resp.ProcessedChanges[0].Data["sync_id"])
}

func TestService_ProcessBatch_SkipsUnregisteredModel(t *testing.T) {
	applier := new(MockApplier)
	registry := NewRegistry()
	registry.MustRegister(ModelStudent, Capability{Applier: applier})

	svc := NewService(registry, slog.Default())

	resp, err := svc.ProcessBatch(context.Background(), BatchRequest{
		DeviceID: "tablet-1",
		Changes: []Envelope{
			{Model: ModelStudentIDCard, Operation: OpCreate, Data: Payload{"sync_id": uuid.NewString()}},
		},
	})

	require.NoError(t, err)
	assert.Empty(t, resp.ProcessedChanges)
	applier.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_ProcessBatch_CollectsServerChanges(t *testing.T) {
	applier := new(MockApplier)
	collector := new(MockCollector)
	registry := NewRegistry()
	registry.MustRegister(ModelStudent, Capability{Applier: applier, Collector: collector})

	since := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	serverDelta := []Envelope{*echoEnvelope(ModelStudent, OpUpdate, uuid.NewString())}
	collector.On("ChangesSince", mock.Anything, since).Return(serverDelta, nil)

	svc := NewService(registry, slog.Default())

	resp, err := svc.ProcessBatch(context.Background(), BatchRequest{
		DeviceID: "tablet-1",
		LastSync: since.Format(time.RFC3339),
	})

	require.NoError(t, err)
	assert.Equal(t, serverDelta, resp.ServerChanges)
}

func TestService_ProcessBatch_FirstSyncSendsNoDelta(t *testing.T) {
	collector := new(MockCollector)
	registry := NewRegistry()
	registry.MustRegister(ModelStudent, Capability{Applier: new(MockApplier), Collector: collector})

	svc := NewService(registry, slog.Default())

	resp, err := svc.ProcessBatch(context.Background(), BatchRequest{
		DeviceID: "tablet-1",
		LastSync: "",
	})

	require.NoError(t, err)
	assert.Empty(t, resp.ServerChanges)
	collector.AssertNotCalled(t, "ChangesSince", mock.Anything, mock.Anything)
}

func TestService_ProcessBatch_MalformedWatermarkDegrades(t *testing.T) {
	collector := new(MockCollector)
	registry := NewRegistry()
	registry.MustRegister(ModelStudent, Capability{Applier: new(MockApplier), Collector: collector})

	svc := NewService(registry, slog.Default())

	resp, err := svc.ProcessBatch(context.Background(), BatchRequest{
		DeviceID: "tablet-1",
		LastSync: "not-a-timestamp",
	})

	// Неразборчивая отметка — пустая дельта, а не ошибка запроса
	require.NoError(t, err)
	assert.Equal(t, StatusResponseSuccess, resp.Status)
	assert.Empty(t, resp.ServerChanges)
	collector.AssertNotCalled(t, "ChangesSince", mock.Anything, mock.Anything)
}

func TestService_ProcessBatch_CollectorFailureSkipsType(t *testing.T) {
	okCollector := new(MockCollector)
	badCollector := new(MockCollector)
	registry := NewRegistry()
	registry.MustRegister(ModelStaff, Capability{Applier: new(MockApplier), Collector: badCollector})
	registry.MustRegister(ModelStudent, Capability{Applier: new(MockApplier), Collector: okCollector})

	since := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	delta := []Envelope{*echoEnvelope(ModelStudent, OpUpdate, uuid.NewString())}
	badCollector.On("ChangesSince", mock.Anything, since).Return(nil, errors.New("db down"))
	okCollector.On("ChangesSince", mock.Anything, since).Return(delta, nil)

	svc := NewService(registry, slog.Default())

	resp, err := svc.ProcessBatch(context.Background(), BatchRequest{
		DeviceID: "tablet-1",
		LastSync: since.Format(time.RFC3339),
	})

	require.NoError(t, err)
	assert.Equal(t, delta, resp.ServerChanges)
}

// snapshotCollector отдает конверты снимка, измененные строго после
// отметки, как это делают SQL-хранилища.
type snapshotCollector struct {
	records []struct {
		modified time.Time
		envelope Envelope
	}
}

func (c *snapshotCollector) add(modified time.Time, e Envelope) {
	c.records = append(c.records, struct {
		modified time.Time
		envelope Envelope
	}{modified, e})
}

func (c *snapshotCollector) ChangesSince(_ context.Context, since time.Time) ([]Envelope, error) {
	var out []Envelope
	for _, r := range c.records {
		if r.modified.After(since) {
			out = append(out, r.envelope)
		}
	}
	return out, nil
}

func TestService_ProcessBatch_DeltaShrinksWithLaterWatermark(t *testing.T) {
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	collector := new(snapshotCollector)
	for i := 0; i < 5; i++ {
		collector.add(base.Add(time.Duration(i)*time.Hour),
			*echoEnvelope(ModelStudent, OpUpdate, uuid.NewString()))
	}

	registry := NewRegistry()
	registry.MustRegister(ModelStudent, Capability{Applier: new(MockApplier), Collector: collector})
	svc := NewService(registry, slog.Default())

	delta := func(watermark time.Time) []Envelope {
		resp, err := svc.ProcessBatch(context.Background(), BatchRequest{
			DeviceID: "tablet-1",
			LastSync: watermark.Format(time.RFC3339),
		})
		require.NoError(t, err)
		return resp.ServerChanges
	}

	early := delta(base.Add(-time.Minute))
	mid := delta(base.Add(90 * time.Minute))
	late := delta(base.Add(5 * time.Hour))

	// Более поздняя отметка дает подмножество более ранней дельты
	require.Len(t, early, 5)
	require.Len(t, mid, 3)
	assert.Empty(t, late)
	for _, e := range mid {
		assert.Contains(t, early, e)
	}

	// Граница строгая: запись с last_modified, равным отметке, не отдается
	boundary := delta(base.Add(4 * time.Hour))
	assert.Empty(t, boundary)
}
