package client

// LocalAttendance — запись посещаемости в локальной базе устройства.
// Значения хранятся строками в том виде, в каком они уходят на провод:
// дата "2006-01-02", времена "15:04:05", отметка last_modified RFC3339.
type LocalAttendance struct {
	SyncID        string
	TeacherSyncID string
	Date          string
	Status        string
	TimeIn        string
	TimeOut       string
	Notes         string
	SyncStatus    string
	LastModified  string
}

// Ключи таблицы состояния устройства.
const (
	stateDeviceID = "device_id"
	stateLastSync = "last_sync"
)
