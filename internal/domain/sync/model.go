package sync

import (
	"fmt"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
)

// Model — тип синхронизируемой сущности. Закрытый набор тегов,
// используемых в конвертах обмена между устройствами и сервером.
type Model string

const (
	ModelStudent           Model = "student"
	ModelStaff             Model = "staff"
	ModelTeacherAttendance Model = "teacher_attendance"
	ModelResult            Model = "result"
	ModelInvoice           Model = "invoice"
	ModelInvoiceItem       Model = "invoice_item"
	ModelReceipt           Model = "receipt"
	ModelStudentIDCard     Model = "student_id_card"
	ModelTeacherIDCard     Model = "teacher_id_card"
)

// Models перечисляет все известные теги моделей.
func Models() []Model {
	return []Model{
		ModelStudent,
		ModelStaff,
		ModelTeacherAttendance,
		ModelResult,
		ModelInvoice,
		ModelInvoiceItem,
		ModelReceipt,
		ModelStudentIDCard,
		ModelTeacherIDCard,
	}
}

func (Model) Schema() huma.Schema {
	models := Models()
	enum := make([]any, len(models))
	for i, m := range models {
		enum[i] = string(m)
	}
	return huma.Schema{
		Type:        "string",
		Enum:        enum,
		Description: "Тип синхронизируемой сущности",
		Examples:    []any{string(ModelTeacherAttendance)},
	}
}

// Validate реализует интерфейс huma.Validatable.
func (m Model) Validate() error {
	for _, known := range Models() {
		if m == known {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownModel, m)
}

// String возвращает строковое представление тега.
func (m Model) String() string {
	return string(m)
}

// Operation — вид изменения в конверте. Удаление протоколом не
// передается: сущности при синхронизации не удаляются.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
)

func (Operation) Schema() huma.Schema {
	return huma.Schema{
		Type:        "string",
		Enum:        []any{string(OpCreate), string(OpUpdate)},
		Description: "Вид изменения",
		Examples:    []any{string(OpCreate)},
	}
}

// Validate реализует интерфейс huma.Validatable.
func (o Operation) Validate() error {
	switch o {
	case OpCreate, OpUpdate:
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownOperation, o)
}

// Envelope — единица изменения в пакете синхронизации: тег модели,
// вид операции и полезная нагрузка поле→значение. Payload всегда
// содержит sync_id; для create — все обязательные поля сущности,
// для update — только изменившиеся.
type Envelope struct {
	Model     Model     `json:"model"`
	Operation Operation `json:"operation"`
	Data      Payload   `json:"data"`
}

// Status — статус синхронизации записи.
type Status string

const (
	// StatusSynced — сервер и устройство согласованы.
	StatusSynced Status = "synced"
	// StatusPending — запись изменена локально и не подтверждена сервером.
	StatusPending Status = "pending"
	// StatusConflict — зафиксирована коллизия записи. Статус объявлен
	// в модели данных, но протокол last-writer-wins его не выставляет:
	// коллизии поглощаются на сервере.
	StatusConflict Status = "conflict"
)

// Meta — поля синхронизации, которые несет каждая синхронизируемая
// сущность. SyncID назначается один раз при первом сохранении и
// никогда не перегенерируется: новая генерация оторвала бы запись от
// представления всех остальных устройств. Локальный целочисленный id
// между устройствами не передается.
type Meta struct {
	SyncID       uuid.UUID `json:"sync_id"`
	SyncStatus   Status    `json:"sync_status"`
	LastModified time.Time `json:"last_modified"`
	DeviceID     string    `json:"device_id,omitempty"`
}

// EnsureSyncID назначает SyncID, если он еще не назначен.
func (m *Meta) EnsureSyncID() {
	if m.SyncID == uuid.Nil {
		m.SyncID = uuid.New()
	}
}

// MarkSynced переводит запись в согласованное состояние от имени
// устройства-отправителя.
func (m *Meta) MarkSynced(deviceID string) {
	m.SyncStatus = StatusSynced
	if deviceID != "" {
		m.DeviceID = deviceID
	}
}
