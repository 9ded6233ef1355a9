package client

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jtoza/school-sync-pro/internal/domain/sync"
)

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия базы данных: %w", err)
	}

	storage := &SQLiteStorage{db: db}

	if err := storage.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка инициализации таблиц: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) initTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS attendance (
			sync_id TEXT PRIMARY KEY,
			teacher_sync_id TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL,
			status TEXT NOT NULL,
			time_in TEXT NOT NULL DEFAULT '',
			time_out TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			sync_status TEXT NOT NULL DEFAULT 'pending',
			last_modified TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance(date);
		CREATE INDEX IF NOT EXISTS idx_attendance_sync_status ON attendance(sync_status);

		CREATE TABLE IF NOT EXISTS server_cache (
			model TEXT NOT NULL,
			sync_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			PRIMARY KEY (model, sync_id)
		);

		CREATE TABLE IF NOT EXISTS sync_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)

	return err
}

// SaveAttendance вставляет запись либо перезаписывает существующую по
// sync_id.
func (s *SQLiteStorage) SaveAttendance(a *LocalAttendance) error {
	_, err := s.db.Exec(`
		INSERT INTO attendance (sync_id, teacher_sync_id, date, status,
		                        time_in, time_out, notes, sync_status, last_modified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (sync_id) DO UPDATE SET
		       teacher_sync_id = excluded.teacher_sync_id,
		       date = excluded.date,
		       status = excluded.status,
		       time_in = excluded.time_in,
		       time_out = excluded.time_out,
		       notes = excluded.notes,
		       sync_status = excluded.sync_status,
		       last_modified = excluded.last_modified
	`, a.SyncID, a.TeacherSyncID, a.Date, a.Status,
		a.TimeIn, a.TimeOut, a.Notes, a.SyncStatus, a.LastModified)
	if err != nil {
		return fmt.Errorf("ошибка сохранения посещаемости: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) ListAttendance(limit int) ([]LocalAttendance, error) {
	query := `
		SELECT sync_id, teacher_sync_id, date, status, time_in, time_out,
		       notes, sync_status, last_modified
		FROM attendance
		ORDER BY date DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer rows.Close()

	return scanAttendance(rows)
}

// PendingAttendance возвращает записи, еще не подтвержденные сервером.
func (s *SQLiteStorage) PendingAttendance() ([]LocalAttendance, error) {
	rows, err := s.db.Query(`
		SELECT sync_id, teacher_sync_id, date, status, time_in, time_out,
		       notes, sync_status, last_modified
		FROM attendance
		WHERE sync_status = ?
		ORDER BY date`, string(sync.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки несинхронизированных записей: %w", err)
	}
	defer rows.Close()

	return scanAttendance(rows)
}

func scanAttendance(rows *sql.Rows) ([]LocalAttendance, error) {
	var out []LocalAttendance
	for rows.Next() {
		var a LocalAttendance
		if err := rows.Scan(&a.SyncID, &a.TeacherSyncID, &a.Date, &a.Status,
			&a.TimeIn, &a.TimeOut, &a.Notes, &a.SyncStatus, &a.LastModified); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MarkAttendanceSynced переводит запись в synced с серверной отметкой
// last_modified.
func (s *SQLiteStorage) MarkAttendanceSynced(syncID, lastModified string) error {
	_, err := s.db.Exec(`
		UPDATE attendance
		SET sync_status = ?, last_modified = ?
		WHERE sync_id = ?`, string(sync.StatusSynced), lastModified, syncID)
	if err != nil {
		return fmt.Errorf("ошибка отметки синхронизации: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) CountPending() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM attendance WHERE sync_status = ?`,
		string(sync.StatusPending)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчета записей: %w", err)
	}
	return count, nil
}

// CacheServerRecord сохраняет конверт серверной дельты чужого типа как
// справочные данные устройства.
func (s *SQLiteStorage) CacheServerRecord(model, syncID string, payload sync.Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ошибка сериализации конверта: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO server_cache (model, sync_id, payload)
		VALUES (?, ?, ?)
		ON CONFLICT (model, sync_id) DO UPDATE SET payload = excluded.payload
	`, model, syncID, string(data))
	if err != nil {
		return fmt.Errorf("ошибка кеширования записи: %w", err)
	}
	return nil
}

// DeviceID возвращает устойчивый идентификатор устройства, создавая
// его при первом обращении.
func (s *SQLiteStorage) DeviceID(deviceName string) (string, error) {
	id, err := s.state(stateDeviceID)
	if err == nil && id != "" {
		return id, nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	id = deviceName + "-" + uuid.NewString()[:8]
	if err := s.saveState(stateDeviceID, id); err != nil {
		return "", err
	}
	return id, nil
}

// LastSync возвращает сохраненную отметку последней синхронизации;
// пустая строка — синхронизаций еще не было.
func (s *SQLiteStorage) LastSync() (string, error) {
	ts, err := s.state(stateLastSync)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return ts, err
}

func (s *SQLiteStorage) SaveLastSync(ts string) error {
	return s.saveState(stateLastSync, ts)
}

func (s *SQLiteStorage) state(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM sync_state WHERE key = ?`, key).Scan(&value)
	return value, err
}

func (s *SQLiteStorage) saveState(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO sync_state (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("ошибка сохранения состояния: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
