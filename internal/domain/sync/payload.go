package sync

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Форматы значений на проводе. Метки времени — RFC3339, даты и время
// суток — в формах ниже; время суток принимается и без секунд.
const (
	WireDate = "2006-01-02"
	WireTime = "15:04:05"

	wireTimeShort = "15:04"
)

// Payload — полезная нагрузка конверта: отображение имени поля в
// значение, как оно пришло из JSON. Аксессоры парсят строковые формы
// дат и времени в структурные значения.
type Payload map[string]any

// Has сообщает, присутствует ли поле в нагрузке.
func (p Payload) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// String возвращает обязательное строковое поле.
func (p Payload) String(key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is not a string", ErrInvalidField, key)
	}
	return s, nil
}

// OptString возвращает строковое поле, если оно присутствует.
func (p Payload) OptString(key string) (string, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Int возвращает обязательное целочисленное поле. JSON-числа приходят
// как float64.
func (p Payload) Int(key string) (int, error) {
	v, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	}
	return 0, fmt.Errorf("%w: %s is not a number", ErrInvalidField, key)
}

// OptInt возвращает целочисленное поле, если оно присутствует.
func (p Payload) OptInt(key string) (int, bool) {
	n, err := p.Int(key)
	return n, err == nil
}

// SyncID возвращает обязательный идентификатор синхронизации конверта.
func (p Payload) SyncID() (uuid.UUID, error) {
	return p.UUID("sync_id")
}

// UUID возвращает обязательное UUID-поле.
func (p Payload) UUID(key string) (uuid.UUID, error) {
	s, err := p.String(key)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s: %v", ErrInvalidField, key, err)
	}
	return id, nil
}

// OptUUID возвращает UUID-поле, если оно присутствует и непустое.
func (p Payload) OptUUID(key string) (uuid.UUID, bool, error) {
	s, ok := p.OptString(key)
	if !ok || s == "" {
		return uuid.Nil, false, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("%w: %s: %v", ErrInvalidField, key, err)
	}
	return id, true, nil
}

// Date возвращает обязательное поле даты.
func (p Payload) Date(key string) (time.Time, error) {
	s, err := p.String(key)
	if err != nil {
		return time.Time{}, err
	}
	d, err := time.Parse(WireDate, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %v", ErrInvalidField, key, err)
	}
	return d, nil
}

// TimeOfDay возвращает поле времени суток. Отсутствующее, null или
// пустое поле дает nil без ошибки: time_in/time_out необязательны.
func (p Payload) TimeOfDay(key string) (*time.Time, error) {
	s, ok := p.OptString(key)
	if !ok || s == "" {
		return nil, nil
	}
	for _, layout := range []string{WireTime, wireTimeShort} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s: bad time of day %q", ErrInvalidField, key, s)
}

// FormatTimeOfDay приводит время суток к проводной форме; nil дает
// пустую строку.
func FormatTimeOfDay(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(WireTime)
}
