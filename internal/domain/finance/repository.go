package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository — хранилище финансовых документов.
type Repository interface {
	// Счета
	GetInvoiceBySyncID(ctx context.Context, syncID uuid.UUID) (*Invoice, error)
	CreateInvoice(ctx context.Context, inv *Invoice) error
	UpdateInvoice(ctx context.Context, inv *Invoice) error
	InvoiceChangesSince(ctx context.Context, since time.Time) ([]Invoice, error)
	CountInvoiceNumbers(ctx context.Context, prefix string) (int, error)
	InvoiceNumberTaken(ctx context.Context, number string) (bool, error)

	// Строки счетов
	GetItemBySyncID(ctx context.Context, syncID uuid.UUID) (*InvoiceItem, error)
	CreateItem(ctx context.Context, item *InvoiceItem) error
	UpdateItem(ctx context.Context, item *InvoiceItem) error
	ItemChangesSince(ctx context.Context, since time.Time) ([]InvoiceItem, error)

	// Квитанции
	GetReceiptBySyncID(ctx context.Context, syncID uuid.UUID) (*Receipt, error)
	CreateReceipt(ctx context.Context, rcpt *Receipt) error
	UpdateReceipt(ctx context.Context, rcpt *Receipt) error
	ReceiptChangesSince(ctx context.Context, since time.Time) ([]Receipt, error)
	CountReceiptNumbers(ctx context.Context, prefix string) (int, error)
	ReceiptNumberTaken(ctx context.Context, number string) (bool, error)
}

// StudentResolver разрешает ссылку на ученика по его sync_id. Если
// ученик не найден, реализация возвращает sync.ErrReferenceNotFound.
type StudentResolver interface {
	ResolveStudent(ctx context.Context, syncID uuid.UUID) (localID int, err error)
}
