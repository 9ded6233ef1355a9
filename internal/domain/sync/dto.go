package sync

import (
	"time"
)

// DTO (Data Transfer Objects) протокола синхронизации.

// BatchRequest — пакет изменений устройства (клиент → сервер).
// LastSync — метка последней успешной синхронизации с этим сервером;
// пустая строка означает первую синхронизацию (дельта сервера тогда
// не отгружается, устройство загружает срез отдельно). Метка
// передается строкой: неразборчивое значение деградирует до «нет
// новых изменений», а не роняет запрос.
type BatchRequest struct {
	DeviceID string     `json:"device_id" example:"tablet-staffroom-1" minLength:"1"`
	Changes  []Envelope `json:"changes"`
	LastSync string     `json:"last_sync,omitempty" example:"2024-03-01T08:00:00Z"`
}

// BatchResponse — результат раунда синхронизации (сервер → клиент).
// ProcessedChanges содержит по одному конверту на каждое принятое
// входящее изменение в том виде, в каком оно сохранено; отвергнутые
// конверты опускаются, клиент замечает пропажу и повторяет их в
// следующем раунде. ServerTime клиент сохраняет как новую метку.
type BatchResponse struct {
	Status           string     `json:"status" enum:"success,error"`
	ProcessedChanges []Envelope `json:"processed_changes"`
	ServerChanges    []Envelope `json:"server_changes"`
	ServerTime       time.Time  `json:"server_time"`
	Message          string     `json:"message,omitempty"`
}

const (
	StatusResponseSuccess = "success"
	StatusResponseError   = "error"
)
