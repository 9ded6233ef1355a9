package client

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"github.com/jtoza/school-sync-pro/internal/app/client/config"
	"github.com/jtoza/school-sync-pro/internal/domain/sync"
)

// SyncService выполняет раунды синхронизации устройства с сервером.
type SyncService struct {
	storage *SQLiteStorage
	http    *httpClient
	config  *config.Config
	log     *slog.Logger
}

// SyncResult — итог одного раунда.
type SyncResult struct {
	Uploaded   int
	Confirmed  int
	Downloaded int
}

func NewSyncService(storage *SQLiteStorage, http *httpClient, cfg *config.Config, log *slog.Logger) *SyncService {
	return &SyncService{
		storage: storage,
		http:    http,
		config:  cfg,
		log:     log.With(slog.String("component", "client_sync")),
	}
}

// Sync отправляет несинхронизированные записи и применяет серверную
// дельту. Неподтвержденные сервером конверты остаются pending и
// повторяются в следующем раунде.
func (s *SyncService) Sync(ctx context.Context) (*SyncResult, error) {
	deviceID, err := s.storage.DeviceID(s.config.DeviceName)
	if err != nil {
		return nil, fmt.Errorf("идентификатор устройства: %w", err)
	}
	lastSync, err := s.storage.LastSync()
	if err != nil {
		return nil, fmt.Errorf("отметка синхронизации: %w", err)
	}

	pending, err := s.storage.PendingAttendance()
	if err != nil {
		return nil, err
	}

	changes := make([]sync.Envelope, 0, len(pending))
	for i := range pending {
		changes = append(changes, *envelopeFromAttendance(&pending[i]))
	}

	req := sync.BatchRequest{
		DeviceID: deviceID,
		Changes:  changes,
		LastSync: lastSync,
	}

	s.log.Info("sync round started",
		slog.String("device_id", deviceID),
		slog.Int("pending", len(changes)),
	)

	resp, err := s.http.PostSync(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Status != sync.StatusResponseSuccess {
		return nil, fmt.Errorf("сервер отклонил пакет: %s", resp.Message)
	}

	result := &SyncResult{Uploaded: len(changes)}

	for i := range resp.ProcessedChanges {
		if err := s.confirm(&resp.ProcessedChanges[i]); err != nil {
			s.log.Warn("failed to confirm processed change", "error", err)
			continue
		}
		result.Confirmed++
	}

	for i := range resp.ServerChanges {
		if err := s.applyServerChange(&resp.ServerChanges[i]); err != nil {
			s.log.Warn("failed to apply server change", "error", err)
			continue
		}
		result.Downloaded++
	}

	if !resp.ServerTime.IsZero() {
		if err := s.storage.SaveLastSync(resp.ServerTime.Format(time.RFC3339)); err != nil {
			return nil, fmt.Errorf("сохранение отметки: %w", err)
		}
	}

	s.log.Info("sync round finished",
		slog.Int("uploaded", result.Uploaded),
		slog.Int("confirmed", result.Confirmed),
		slog.Int("downloaded", result.Downloaded),
	)
	return result, nil
}

// confirm обрабатывает подтверждение сервера: запись переводится в
// synced с серверной отметкой last_modified.
func (s *SyncService) confirm(env *sync.Envelope) error {
	syncID, err := env.Data.String("sync_id")
	if err != nil {
		return err
	}
	lastModified, _ := env.Data.OptString("last_modified")

	if env.Model != sync.ModelTeacherAttendance {
		return s.storage.CacheServerRecord(string(env.Model), syncID, env.Data)
	}
	return s.storage.MarkAttendanceSynced(syncID, lastModified)
}

// applyServerChange применяет конверт серверной дельты: посещаемость
// ложится в рабочую таблицу, остальные типы — в справочный кеш.
func (s *SyncService) applyServerChange(env *sync.Envelope) error {
	syncID, err := env.Data.String("sync_id")
	if err != nil {
		return err
	}

	if env.Model != sync.ModelTeacherAttendance {
		return s.storage.CacheServerRecord(string(env.Model), syncID, env.Data)
	}

	att := &LocalAttendance{
		SyncID:     syncID,
		SyncStatus: string(sync.StatusSynced),
	}
	att.TeacherSyncID, _ = env.Data.OptString("teacher_sync_id")
	att.Date, _ = env.Data.OptString("date")
	att.Status, _ = env.Data.OptString("status")
	att.TimeIn, _ = env.Data.OptString("time_in")
	att.TimeOut, _ = env.Data.OptString("time_out")
	att.Notes, _ = env.Data.OptString("notes")
	att.LastModified, _ = env.Data.OptString("last_modified")

	return s.storage.SaveAttendance(att)
}

// envelopeFromAttendance собирает конверт протокола из локальной
// записи. Пустые необязательные поля на провод не попадают.
func envelopeFromAttendance(a *LocalAttendance) *sync.Envelope {
	data := sync.Payload{
		"sync_id": a.SyncID,
		"date":    a.Date,
		"status":  a.Status,
	}
	if a.TeacherSyncID != "" {
		data["teacher_sync_id"] = a.TeacherSyncID
	}
	if a.TimeIn != "" {
		data["time_in"] = a.TimeIn
	}
	if a.TimeOut != "" {
		data["time_out"] = a.TimeOut
	}
	if a.Notes != "" {
		data["notes"] = a.Notes
	}

	return &sync.Envelope{
		Model:     sync.ModelTeacherAttendance,
		Operation: sync.OpCreate,
		Data:      data,
	}
}
