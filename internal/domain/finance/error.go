package finance

import "errors"

var (
	ErrInvoiceNotFound = errors.New("invoice not found")
	ErrItemNotFound    = errors.New("invoice item not found")
	ErrReceiptNotFound = errors.New("receipt not found")

	// ErrNumberExhausted — не удалось подобрать свободный номер
	// документа за отведенное число попыток.
	ErrNumberExhausted = errors.New("document number sequence exhausted")
)
