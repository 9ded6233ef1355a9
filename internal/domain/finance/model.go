package finance

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jtoza/school-sync-pro/internal/domain/sync"
)

// Invoice — счет ученику за учебный период.
type Invoice struct {
	ID                      int       `json:"-"`
	StudentID               int       `json:"-"`
	StudentSyncID           uuid.UUID `json:"student_sync_id"`
	Session                 string    `json:"session"`
	Term                    string    `json:"term"`
	ClassFor                string    `json:"class_for"`
	BalanceFromPreviousTerm int       `json:"balance_from_previous_term"`
	Status                  string    `json:"status"`
	InvoiceNumber           string    `json:"invoice_number"`
	Currency                string    `json:"currency"`

	sync.Meta
}

// InvoiceItem — строка счета.
type InvoiceItem struct {
	ID            int       `json:"-"`
	InvoiceID     int       `json:"-"`
	InvoiceSyncID uuid.UUID `json:"invoice_sync_id"`
	Description   string    `json:"description"`
	Amount        int       `json:"amount"`

	sync.Meta
}

// PaymentMethod — способ оплаты по квитанции.
type PaymentMethod string

const (
	PayCash         PaymentMethod = "cash"
	PayBankTransfer PaymentMethod = "bank_transfer"
	PayCard         PaymentMethod = "card"
	PayMpesa        PaymentMethod = "mpesa"
	PayPOS          PaymentMethod = "pos"
	PayOther        PaymentMethod = "other"
)

// ParsePaymentMethod проверяет и возвращает способ оплаты.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case PayCash, PayBankTransfer, PayCard, PayMpesa, PayPOS, PayOther:
		return m, nil
	}
	return "", fmt.Errorf("%w: payment method %q", sync.ErrInvalidField, s)
}

// Receipt — квитанция об оплате по счету.
type Receipt struct {
	ID            int           `json:"-"`
	InvoiceID     int           `json:"-"`
	InvoiceSyncID uuid.UUID     `json:"invoice_sync_id"`
	AmountPaid    int           `json:"amount_paid"`
	DatePaid      time.Time     `json:"date_paid"`
	Comment       string        `json:"comment,omitempty"`
	ReceiptNumber string        `json:"receipt_number"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	ReferenceCode string        `json:"reference_code,omitempty"`

	sync.Meta
}
