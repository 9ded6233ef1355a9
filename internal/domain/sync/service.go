package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"
)

// Servicer — интерфейс координатора синхронизации.
type Servicer interface {
	// ProcessBatch выполняет один раунд: применяет входящие конверты
	// и собирает дельту сервера после отметки устройства.
	ProcessBatch(ctx context.Context, req BatchRequest) (*BatchResponse, error)
}

// Service — координатор раунда синхронизации. Между запросами
// состояния не держит: всё состояние протокола живет в sync-полях
// самих сущностей, каждый вызов — самодостаточный цикл.
type Service struct {
	registry *Registry
	log      *slog.Logger
	now      func() time.Time
}

// NewService создает координатор над реестром возможностей.
func NewService(registry *Registry, log *slog.Logger) *Service {
	return &Service{
		registry: registry,
		log:      log.With(slog.String("component", "sync_service")),
		now:      time.Now,
	}
}

// ProcessBatch применяет конверты пакета в порядке их следования и
// собирает исходящую дельту. Отказ одного конверта не прерывает
// обработку остальных: отвергнутые конверты просто не попадают в
// processed_changes, устройство повторит их в следующем раунде.
func (s *Service) ProcessBatch(ctx context.Context, req BatchRequest) (*BatchResponse, error) {
	if req.DeviceID == "" {
		return nil, fmt.Errorf("%w: device_id", ErrMissingField)
	}

	s.log.Info("sync batch received",
		slog.String("device_id", req.DeviceID),
		slog.Int("changes", len(req.Changes)),
	)

	processed := s.applyChanges(ctx, req)

	serverChanges := make([]Envelope, 0)
	if req.LastSync != "" {
		serverChanges = s.collectChanges(ctx, req.LastSync)
	}

	resp := &BatchResponse{
		Status:           StatusResponseSuccess,
		ProcessedChanges: processed,
		ServerChanges:    serverChanges,
		ServerTime:       s.now(),
		Message: fmt.Sprintf("Processed %d changes, sent %d server changes",
			len(processed), len(serverChanges)),
	}

	s.log.Info("sync batch done",
		slog.String("device_id", req.DeviceID),
		slog.Int("processed", len(processed)),
		slog.Int("server_changes", len(serverChanges)),
	)

	return resp, nil
}

func (s *Service) applyChanges(ctx context.Context, req BatchRequest) []Envelope {
	processed := make([]Envelope, 0, len(req.Changes))

	for _, change := range req.Changes {
		cap, ok := s.registry.Lookup(change.Model)
		if !ok {
			s.log.Warn("unsupported model tag, change skipped",
				slog.String("model", change.Model.String()),
				slog.String("device_id", req.DeviceID),
			)
			continue
		}

		echo, err := cap.Applier.Apply(ctx, change.Operation, change.Data, req.DeviceID)
		if err != nil {
			s.logApplyFailure(change, req.DeviceID, err)
			continue
		}
		if echo != nil {
			processed = append(processed, *echo)
		}
	}

	return processed
}

func (s *Service) logApplyFailure(change Envelope, deviceID string, err error) {
	attrs := []any{
		slog.String("model", change.Model.String()),
		slog.String("operation", string(change.Operation)),
		slog.String("device_id", deviceID),
		slog.Any("error", err),
	}

	switch {
	case errors.Is(err, ErrDuplicate):
		// Повторная доставка после сетевого сбоя, штатный случай.
		s.log.Debug("duplicate change skipped", attrs...)
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrReferenceNotFound),
		errors.Is(err, ErrMissingField),
		errors.Is(err, ErrInvalidField):
		s.log.Warn("change rejected", attrs...)
	default:
		s.log.Error("change failed", attrs...)
	}
}

func (s *Service) collectChanges(ctx context.Context, lastSync string) []Envelope {
	changes := make([]Envelope, 0)

	since, err := time.Parse(time.RFC3339, lastSync)
	if err != nil {
		// Неразборчивая отметка деградирует до «нет новых изменений».
		s.log.Warn("unparseable last_sync, sending no server changes",
			slog.String("last_sync", lastSync),
			slog.Any("error", err),
		)
		return changes
	}

	for _, collector := range s.registry.Collectors() {
		batch, err := collector.ChangesSince(ctx, since)
		if err != nil {
			s.log.Error("collector failed, type skipped", slog.Any("error", err))
			continue
		}
		changes = append(changes, batch...)
	}

	return changes
}
