package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/exp/slog"

	"github.com/jtoza/school-sync-pro/internal/domain/sync"
)

// MockServicer — мок для интерфейса sync.Servicer
type MockServicer struct {
	mock.Mock
}

func (m *MockServicer) ProcessBatch(ctx context.Context, req sync.BatchRequest) (*sync.BatchResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sync.BatchResponse), args.Error(1)
}

func TestHandler_batchSync_Success(t *testing.T) {
	service := new(MockServicer)
	handler := NewHandler(service, slog.Default(), huma.Middlewares{})

	req := sync.BatchRequest{
		DeviceID: "tablet-1",
		Changes:  []sync.Envelope{},
	}
	expected := &sync.BatchResponse{
		Status:           sync.StatusResponseSuccess,
		ProcessedChanges: []sync.Envelope{},
		ServerChanges:    []sync.Envelope{},
		ServerTime:       time.Now(),
	}
	service.On("ProcessBatch", mock.Anything, req).Return(expected, nil)

	output, err := handler.batchSync(context.Background(), &syncInput{Body: req})

	assert.NoError(t, err)
	assert.Equal(t, sync.StatusResponseSuccess, output.Body.Status)
	service.AssertExpectations(t)
}

func TestHandler_batchSync_ServiceError(t *testing.T) {
	service := new(MockServicer)
	handler := NewHandler(service, slog.Default(), huma.Middlewares{})

	req := sync.BatchRequest{}
	service.On("ProcessBatch", mock.Anything, req).
		Return(nil, errors.New("missing required field: device_id"))

	output, err := handler.batchSync(context.Background(), &syncInput{Body: req})

	// Ошибка сервиса превращается в error-ответ протокола, а не в HTTP-ошибку
	assert.NoError(t, err)
	assert.Equal(t, sync.StatusResponseError, output.Body.Status)
	assert.Contains(t, output.Body.Message, "device_id")
	service.AssertExpectations(t)
}
