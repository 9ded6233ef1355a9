package client

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"github.com/jtoza/school-sync-pro/internal/app/client/config"
	"github.com/jtoza/school-sync-pro/internal/domain/sync"
)

// App — клиентское приложение устройства: локальная база, HTTP-клиент
// и сервис синхронизации.
type App struct {
	config      *config.Config
	log         *slog.Logger
	httpClient  *httpClient
	storage     *SQLiteStorage
	syncService *SyncService
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	httpCl, err := NewHTTPClient(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации HTTP клиента: %w", err)
	}

	storage, err := NewSQLiteStorage(cfg.DataPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации хранилища: %w", err)
	}

	app := &App{
		config:     cfg,
		log:        log,
		httpClient: httpCl,
		storage:    storage,
	}
	app.syncService = NewSyncService(storage, httpCl, cfg, log)

	return app, nil
}

func (a *App) Close() error {
	return a.storage.Close()
}

// CheckConnection проверяет доступность сервера синхронизации.
func (a *App) CheckConnection(ctx context.Context) error {
	return a.httpClient.HealthCheck(ctx)
}

// MarkAttendance заводит локальную запись посещаемости; запись уйдет
// на сервер при следующей синхронизации.
func (a *App) MarkAttendance(teacherSyncID, date, status, timeIn, timeOut, notes string) (*LocalAttendance, error) {
	if date == "" {
		date = time.Now().Format(sync.WireDate)
	}
	if _, err := time.Parse(sync.WireDate, date); err != nil {
		return nil, fmt.Errorf("неверная дата %q: %w", date, err)
	}

	att := &LocalAttendance{
		SyncID:        uuid.NewString(),
		TeacherSyncID: teacherSyncID,
		Date:          date,
		Status:        status,
		TimeIn:        timeIn,
		TimeOut:       timeOut,
		Notes:         notes,
		SyncStatus:    string(sync.StatusPending),
		LastModified:  time.Now().Format(time.RFC3339),
	}

	if err := a.storage.SaveAttendance(att); err != nil {
		return nil, err
	}

	a.log.Debug("attendance recorded",
		slog.String("sync_id", att.SyncID),
		slog.String("date", att.Date),
	)
	return att, nil
}

// ListAttendance возвращает локальные записи посещаемости.
func (a *App) ListAttendance(limit int) ([]LocalAttendance, error) {
	return a.storage.ListAttendance(limit)
}

// Sync выполняет один раунд синхронизации с сервером.
func (a *App) Sync(ctx context.Context) (*SyncResult, error) {
	return a.syncService.Sync(ctx)
}

// DeviceStatus — сводка состояния устройства.
type DeviceStatus struct {
	DeviceID string
	LastSync string
	Pending  int
	Online   bool
}

// Status собирает сводку: идентификатор устройства, отметка последней
// синхронизации, количество несинхронизированных записей, доступность
// сервера.
func (a *App) Status(ctx context.Context) (*DeviceStatus, error) {
	deviceID, err := a.storage.DeviceID(a.config.DeviceName)
	if err != nil {
		return nil, err
	}
	lastSync, err := a.storage.LastSync()
	if err != nil {
		return nil, err
	}
	pending, err := a.storage.CountPending()
	if err != nil {
		return nil, err
	}

	return &DeviceStatus{
		DeviceID: deviceID,
		LastSync: lastSync,
		Pending:  pending,
		Online:   a.httpClient.HealthCheck(ctx) == nil,
	}, nil
}
