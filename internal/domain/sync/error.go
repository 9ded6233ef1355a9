package sync

import "errors"

var (
	ErrUnknownModel     = errors.New("unknown model tag")
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrDuplicate — конверт create с уже известным sync_id. Повторная
	// доставка пакета после сетевого сбоя; применение пропускается.
	ErrDuplicate = errors.New("record already exists")

	// ErrNotFound — конверт update ссылается на неизвестный sync_id.
	ErrNotFound = errors.New("record not found")

	// ErrReferenceNotFound — ссылка на связанную сущность не разрешилась.
	ErrReferenceNotFound = errors.New("referenced entity not found")

	ErrMissingField = errors.New("missing required field")
	ErrInvalidField = errors.New("invalid field value")

	ErrAlreadyRegistered = errors.New("model already registered")
)
