package sync

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Applier применяет один входящий конверт к хранилищу своего типа
// сущности. Возвращаемый конверт — подтверждение с сохраненными
// значениями; он попадает в processed_changes ответа. Операция
// конверта в подтверждении может отличаться от входящей: create,
// поглощенный коллизией натурального ключа, подтверждается как update.
type Applier interface {
	Apply(ctx context.Context, op Operation, data Payload, deviceID string) (*Envelope, error)
}

// Collector отдает все сущности своего типа, измененные строго после
// отметки, сериализованные в конверты с операцией update. Ссылки на
// связанные сущности внутри конверта — их sync_id, а не локальные id.
type Collector interface {
	ChangesSince(ctx context.Context, since time.Time) ([]Envelope, error)
}

// Capability — пара применителя и сборщика для одного типа сущности.
// Collector может быть nil для типов, которые принимаются, но не
// отгружаются.
type Capability struct {
	Applier   Applier
	Collector Collector
}

// Registry — закрытая таблица диспетчеризации по тегу модели,
// заполняемая при старте. Регистрируются только реализованные типы:
// частичное покрытие протокола видно по Supported, а не спрятано в
// молчаливых заглушках. Незарегистрированный тег во входящем пакете
// пропускается с предупреждением на этапе обработки.
type Registry struct {
	caps map[Model]Capability
}

// NewRegistry создает пустой реестр возможностей.
func NewRegistry() *Registry {
	return &Registry{caps: make(map[Model]Capability)}
}

// Register привязывает возможности к тегу модели. Неизвестный тег или
// повторная регистрация — ошибка конфигурации старта.
func (r *Registry) Register(m Model, cap Capability) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if cap.Applier == nil {
		return fmt.Errorf("model %s: applier is required", m)
	}
	if _, dup := r.caps[m]; dup {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, m)
	}
	r.caps[m] = cap
	return nil
}

// MustRegister — Register с паникой; для статической сборки реестра
// при старте процесса.
func (r *Registry) MustRegister(m Model, cap Capability) {
	if err := r.Register(m, cap); err != nil {
		panic(err)
	}
}

// Lookup возвращает возможности для тега модели.
func (r *Registry) Lookup(m Model) (Capability, bool) {
	cap, ok := r.caps[m]
	return cap, ok
}

// Supported возвращает отсортированный список зарегистрированных тегов.
func (r *Registry) Supported() []Model {
	models := make([]Model, 0, len(r.caps))
	for m := range r.caps {
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i] < models[j] })
	return models
}

// Collectors возвращает зарегистрированные сборщики в порядке тегов.
func (r *Registry) Collectors() []Collector {
	var collectors []Collector
	for _, m := range r.Supported() {
		if c := r.caps[m].Collector; c != nil {
			collectors = append(collectors, c)
		}
	}
	return collectors
}
