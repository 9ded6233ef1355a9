package finance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"github.com/jtoza/school-sync-pro/internal/domain/sync"
)

// InvoiceSync — применитель и сборщик конвертов invoice.
type InvoiceSync struct {
	finance  Repository
	students StudentResolver
	log      *slog.Logger
	now      func() time.Time
}

// NewInvoiceSync создает синхронизацию счетов.
func NewInvoiceSync(finance Repository, students StudentResolver, log *slog.Logger) *InvoiceSync {
	return &InvoiceSync{
		finance:  finance,
		students: students,
		log:      log.With(slog.String("component", "invoice_sync")),
		now:      time.Now,
	}
}

// Apply применяет один конверт invoice.
func (s *InvoiceSync) Apply(ctx context.Context, op sync.Operation, data sync.Payload, deviceID string) (*sync.Envelope, error) {
	switch op {
	case sync.OpCreate:
		return s.applyCreate(ctx, data, deviceID)
	case sync.OpUpdate:
		return s.applyUpdate(ctx, data, deviceID)
	}
	return nil, fmt.Errorf("%w: %s", sync.ErrUnknownOperation, op)
}

func (s *InvoiceSync) applyCreate(ctx context.Context, data sync.Payload, deviceID string) (*sync.Envelope, error) {
	syncID, err := data.SyncID()
	if err != nil {
		return nil, err
	}

	if _, err := s.finance.GetInvoiceBySyncID(ctx, syncID); err == nil {
		return nil, fmt.Errorf("%w: %s", sync.ErrDuplicate, syncID)
	} else if !errors.Is(err, ErrInvoiceNotFound) {
		return nil, fmt.Errorf("check existing invoice: %w", err)
	}

	studentSyncID, err := data.UUID("student_sync_id")
	if err != nil {
		return nil, err
	}
	studentID, err := s.students.ResolveStudent(ctx, studentSyncID)
	if err != nil {
		return nil, err
	}

	inv := &Invoice{
		StudentID:     studentID,
		StudentSyncID: studentSyncID,
		Status:        "active",
		Currency:      "NGN",
		Meta:          sync.Meta{SyncID: syncID},
	}
	inv.Session, _ = data.OptString("session")
	inv.Term, _ = data.OptString("term")
	inv.ClassFor, _ = data.OptString("class_for")
	inv.BalanceFromPreviousTerm, _ = data.OptInt("balance_from_previous_term")
	if v, ok := data.OptString("status"); ok {
		inv.Status = v
	}
	if v, ok := data.OptString("currency"); ok {
		inv.Currency = v
	}

	// Номер счета сервер выделяет сам, если устройство его не несет.
	inv.InvoiceNumber, _ = data.OptString("invoice_number")
	if inv.InvoiceNumber == "" {
		if inv.InvoiceNumber, err = NextInvoiceNumber(ctx, s.finance, s.now()); err != nil {
			return nil, err
		}
	}

	inv.MarkSynced(deviceID)
	if err := s.finance.CreateInvoice(ctx, inv); err != nil {
		return nil, fmt.Errorf("persist invoice: %w", err)
	}

	return s.serialize(inv, sync.OpCreate), nil
}

func (s *InvoiceSync) applyUpdate(ctx context.Context, data sync.Payload, deviceID string) (*sync.Envelope, error) {
	syncID, err := data.SyncID()
	if err != nil {
		return nil, err
	}

	inv, err := s.finance.GetInvoiceBySyncID(ctx, syncID)
	if err != nil {
		if errors.Is(err, ErrInvoiceNotFound) {
			return nil, fmt.Errorf("%w: invoice %s", sync.ErrNotFound, syncID)
		}
		return nil, fmt.Errorf("load invoice: %w", err)
	}

	if v, ok := data.OptString("session"); ok {
		inv.Session = v
	}
	if v, ok := data.OptString("term"); ok {
		inv.Term = v
	}
	if v, ok := data.OptString("class_for"); ok {
		inv.ClassFor = v
	}
	if data.Has("balance_from_previous_term") {
		if inv.BalanceFromPreviousTerm, err = data.Int("balance_from_previous_term"); err != nil {
			return nil, err
		}
	}
	if v, ok := data.OptString("status"); ok {
		inv.Status = v
	}
	if v, ok := data.OptString("currency"); ok {
		inv.Currency = v
	}

	inv.MarkSynced(deviceID)
	if err := s.finance.UpdateInvoice(ctx, inv); err != nil {
		return nil, fmt.Errorf("update invoice: %w", err)
	}

	return s.serialize(inv, sync.OpUpdate), nil
}

// ChangesSince отдает счета, измененные строго после отметки.
func (s *InvoiceSync) ChangesSince(ctx context.Context, since time.Time) ([]sync.Envelope, error) {
	invoices, err := s.finance.InvoiceChangesSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("collect invoice changes: %w", err)
	}

	envelopes := make([]sync.Envelope, 0, len(invoices))
	for i := range invoices {
		envelopes = append(envelopes, *s.serialize(&invoices[i], sync.OpUpdate))
	}
	return envelopes, nil
}

func (s *InvoiceSync) serialize(inv *Invoice, op sync.Operation) *sync.Envelope {
	return &sync.Envelope{
		Model:     sync.ModelInvoice,
		Operation: op,
		Data: sync.Payload{
			"sync_id":                    inv.SyncID.String(),
			"student_sync_id":            inv.StudentSyncID.String(),
			"session":                    inv.Session,
			"term":                       inv.Term,
			"class_for":                  inv.ClassFor,
			"balance_from_previous_term": inv.BalanceFromPreviousTerm,
			"status":                     inv.Status,
			"invoice_number":             inv.InvoiceNumber,
			"currency":                   inv.Currency,
			"sync_status":                string(inv.SyncStatus),
			"last_modified":              inv.LastModified.Format(time.RFC3339),
		},
	}
}

// ItemSync — применитель и сборщик конвертов invoice_item.
type ItemSync struct {
	finance Repository
	log     *slog.Logger
}

// NewItemSync создает синхронизацию строк счетов.
func NewItemSync(finance Repository, log *slog.Logger) *ItemSync {
	return &ItemSync{
		finance: finance,
		log:     log.With(slog.String("component", "invoice_item_sync")),
	}
}

// Apply применяет один конверт invoice_item.
func (s *ItemSync) Apply(ctx context.Context, op sync.Operation, data sync.Payload, deviceID string) (*sync.Envelope, error) {
	switch op {
	case sync.OpCreate:
		return s.applyCreate(ctx, data, deviceID)
	case sync.OpUpdate:
		return s.applyUpdate(ctx, data, deviceID)
	}
	return nil, fmt.Errorf("%w: %s", sync.ErrUnknownOperation, op)
}

func (s *ItemSync) resolveInvoice(ctx context.Context, data sync.Payload) (*Invoice, error) {
	invoiceSyncID, err := data.UUID("invoice_sync_id")
	if err != nil {
		return nil, err
	}
	inv, err := s.finance.GetInvoiceBySyncID(ctx, invoiceSyncID)
	if err != nil {
		if errors.Is(err, ErrInvoiceNotFound) {
			return nil, fmt.Errorf("%w: invoice %s", sync.ErrReferenceNotFound, invoiceSyncID)
		}
		return nil, fmt.Errorf("resolve invoice: %w", err)
	}
	return inv, nil
}

func (s *ItemSync) applyCreate(ctx context.Context, data sync.Payload, deviceID string) (*sync.Envelope, error) {
	syncID, err := data.SyncID()
	if err != nil {
		return nil, err
	}

	if _, err := s.finance.GetItemBySyncID(ctx, syncID); err == nil {
		return nil, fmt.Errorf("%w: %s", sync.ErrDuplicate, syncID)
	} else if !errors.Is(err, ErrItemNotFound) {
		return nil, fmt.Errorf("check existing invoice item: %w", err)
	}

	inv, err := s.resolveInvoice(ctx, data)
	if err != nil {
		return nil, err
	}
	description, err := data.String("description")
	if err != nil {
		return nil, err
	}
	amount, err := data.Int("amount")
	if err != nil {
		return nil, err
	}

	item := &InvoiceItem{
		InvoiceID:     inv.ID,
		InvoiceSyncID: inv.SyncID,
		Description:   description,
		Amount:        amount,
		Meta:          sync.Meta{SyncID: syncID},
	}
	item.MarkSynced(deviceID)

	if err := s.finance.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("persist invoice item: %w", err)
	}

	return s.serialize(item, sync.OpCreate), nil
}

func (s *ItemSync) applyUpdate(ctx context.Context, data sync.Payload, deviceID string) (*sync.Envelope, error) {
	syncID, err := data.SyncID()
	if err != nil {
		return nil, err
	}

	item, err := s.finance.GetItemBySyncID(ctx, syncID)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, fmt.Errorf("%w: invoice item %s", sync.ErrNotFound, syncID)
		}
		return nil, fmt.Errorf("load invoice item: %w", err)
	}

	if v, ok := data.OptString("description"); ok {
		item.Description = v
	}
	if data.Has("amount") {
		if item.Amount, err = data.Int("amount"); err != nil {
			return nil, err
		}
	}

	item.MarkSynced(deviceID)
	if err := s.finance.UpdateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("update invoice item: %w", err)
	}

	return s.serialize(item, sync.OpUpdate), nil
}

// ChangesSince отдает строки счетов, измененные строго после отметки.
func (s *ItemSync) ChangesSince(ctx context.Context, since time.Time) ([]sync.Envelope, error) {
	items, err := s.finance.ItemChangesSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("collect invoice item changes: %w", err)
	}

	envelopes := make([]sync.Envelope, 0, len(items))
	for i := range items {
		envelopes = append(envelopes, *s.serialize(&items[i], sync.OpUpdate))
	}
	return envelopes, nil
}

func (s *ItemSync) serialize(item *InvoiceItem, op sync.Operation) *sync.Envelope {
	return &sync.Envelope{
		Model:     sync.ModelInvoiceItem,
		Operation: op,
		Data: sync.Payload{
			"sync_id":         item.SyncID.String(),
			"invoice_sync_id": item.InvoiceSyncID.String(),
			"description":     item.Description,
			"amount":          item.Amount,
			"sync_status":     string(item.SyncStatus),
			"last_modified":   item.LastModified.Format(time.RFC3339),
		},
	}
}

// ReceiptSync — применитель и сборщик конвертов receipt.
type ReceiptSync struct {
	finance Repository
	log     *slog.Logger
	now     func() time.Time
}

// NewReceiptSync создает синхронизацию квитанций.
func NewReceiptSync(finance Repository, log *slog.Logger) *ReceiptSync {
	return &ReceiptSync{
		finance: finance,
		log:     log.With(slog.String("component", "receipt_sync")),
		now:     time.Now,
	}
}

// Apply применяет один конверт receipt.
func (s *ReceiptSync) Apply(ctx context.Context, op sync.Operation, data sync.Payload, deviceID string) (*sync.Envelope, error) {
	switch op {
	case sync.OpCreate:
		return s.applyCreate(ctx, data, deviceID)
	case sync.OpUpdate:
		return s.applyUpdate(ctx, data, deviceID)
	}
	return nil, fmt.Errorf("%w: %s", sync.ErrUnknownOperation, op)
}

func (s *ReceiptSync) applyCreate(ctx context.Context, data sync.Payload, deviceID string) (*sync.Envelope, error) {
	syncID, err := data.SyncID()
	if err != nil {
		return nil, err
	}

	if _, err := s.finance.GetReceiptBySyncID(ctx, syncID); err == nil {
		return nil, fmt.Errorf("%w: %s", sync.ErrDuplicate, syncID)
	} else if !errors.Is(err, ErrReceiptNotFound) {
		return nil, fmt.Errorf("check existing receipt: %w", err)
	}

	invoiceSyncID, err := data.UUID("invoice_sync_id")
	if err != nil {
		return nil, err
	}
	inv, err := s.finance.GetInvoiceBySyncID(ctx, invoiceSyncID)
	if err != nil {
		if errors.Is(err, ErrInvoiceNotFound) {
			return nil, fmt.Errorf("%w: invoice %s", sync.ErrReferenceNotFound, invoiceSyncID)
		}
		return nil, fmt.Errorf("resolve invoice: %w", err)
	}

	amount, err := data.Int("amount_paid")
	if err != nil {
		return nil, err
	}

	rcpt := &Receipt{
		InvoiceID:     inv.ID,
		InvoiceSyncID: inv.SyncID,
		AmountPaid:    amount,
		DatePaid:      s.now(),
		PaymentMethod: PayCash,
		Meta:          sync.Meta{SyncID: syncID},
	}
	if data.Has("date_paid") {
		if rcpt.DatePaid, err = data.Date("date_paid"); err != nil {
			return nil, err
		}
	}
	if v, ok := data.OptString("payment_method"); ok {
		if rcpt.PaymentMethod, err = ParsePaymentMethod(v); err != nil {
			return nil, err
		}
	}
	rcpt.Comment, _ = data.OptString("comment")
	rcpt.ReferenceCode, _ = data.OptString("reference_code")

	rcpt.ReceiptNumber, _ = data.OptString("receipt_number")
	if rcpt.ReceiptNumber == "" {
		if rcpt.ReceiptNumber, err = NextReceiptNumber(ctx, s.finance, s.now()); err != nil {
			return nil, err
		}
	}

	rcpt.MarkSynced(deviceID)
	if err := s.finance.CreateReceipt(ctx, rcpt); err != nil {
		return nil, fmt.Errorf("persist receipt: %w", err)
	}

	return s.serialize(rcpt, sync.OpCreate), nil
}

func (s *ReceiptSync) applyUpdate(ctx context.Context, data sync.Payload, deviceID string) (*sync.Envelope, error) {
	syncID, err := data.SyncID()
	if err != nil {
		return nil, err
	}

	rcpt, err := s.finance.GetReceiptBySyncID(ctx, syncID)
	if err != nil {
		if errors.Is(err, ErrReceiptNotFound) {
			return nil, fmt.Errorf("%w: receipt %s", sync.ErrNotFound, syncID)
		}
		return nil, fmt.Errorf("load receipt: %w", err)
	}

	if data.Has("amount_paid") {
		if rcpt.AmountPaid, err = data.Int("amount_paid"); err != nil {
			return nil, err
		}
	}
	if data.Has("date_paid") {
		if rcpt.DatePaid, err = data.Date("date_paid"); err != nil {
			return nil, err
		}
	}
	if v, ok := data.OptString("payment_method"); ok {
		if rcpt.PaymentMethod, err = ParsePaymentMethod(v); err != nil {
			return nil, err
		}
	}
	if v, ok := data.OptString("comment"); ok {
		rcpt.Comment = v
	}
	if v, ok := data.OptString("reference_code"); ok {
		rcpt.ReferenceCode = v
	}

	rcpt.MarkSynced(deviceID)
	if err := s.finance.UpdateReceipt(ctx, rcpt); err != nil {
		return nil, fmt.Errorf("update receipt: %w", err)
	}

	return s.serialize(rcpt, sync.OpUpdate), nil
}

// ChangesSince отдает квитанции, измененные строго после отметки.
func (s *ReceiptSync) ChangesSince(ctx context.Context, since time.Time) ([]sync.Envelope, error) {
	receipts, err := s.finance.ReceiptChangesSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("collect receipt changes: %w", err)
	}

	envelopes := make([]sync.Envelope, 0, len(receipts))
	for i := range receipts {
		envelopes = append(envelopes, *s.serialize(&receipts[i], sync.OpUpdate))
	}
	return envelopes, nil
}

func (s *ReceiptSync) serialize(rcpt *Receipt, op sync.Operation) *sync.Envelope {
	return &sync.Envelope{
		Model:     sync.ModelReceipt,
		Operation: op,
		Data: sync.Payload{
			"sync_id":         rcpt.SyncID.String(),
			"invoice_sync_id": rcpt.InvoiceSyncID.String(),
			"amount_paid":     rcpt.AmountPaid,
			"date_paid":       rcpt.DatePaid.Format(sync.WireDate),
			"comment":         rcpt.Comment,
			"receipt_number":  rcpt.ReceiptNumber,
			"payment_method":  string(rcpt.PaymentMethod),
			"reference_code":  rcpt.ReferenceCode,
			"sync_status":     string(rcpt.SyncStatus),
			"last_modified":   rcpt.LastModified.Format(time.RFC3339),
		},
	}
}
