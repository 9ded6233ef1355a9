package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"github.com/jtoza/school-sync-pro/internal/domain/finance"
)

// FinanceRepository обслуживает счета, строки счетов и квитанции в
// одном хранилище: нумерация счетов и квитанций живет рядом с их
// таблицами.
type FinanceRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewFinanceRepository(pool *pgxpool.Pool, log *slog.Logger) *FinanceRepository {
	return &FinanceRepository{
		pool: pool,
		log:  log.With("component", "finance_repository"),
	}
}

const invoiceColumns = `i.id, i.student_id, s.sync_id, i.session, i.term, i.class_for,
	       i.balance_from_previous_term, i.status, i.invoice_number, i.currency,
	       i.sync_id, i.sync_status, i.last_modified, i.device_id`

func (r *FinanceRepository) GetInvoiceBySyncID(ctx context.Context, syncID uuid.UUID) (*finance.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices i
		JOIN students s ON s.id = i.student_id
		WHERE i.sync_id = $1`

	inv, err := r.scanInvoice(r.pool.QueryRow(ctx, query, syncID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, finance.ErrInvoiceNotFound
		}
		r.log.Error("failed to get invoice", "sync_id", syncID.String(), "error", err)
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

func (r *FinanceRepository) CreateInvoice(ctx context.Context, inv *finance.Invoice) error {
	const query = `
		INSERT INTO invoices
		       (student_id, session, term, class_for, balance_from_previous_term,
		        status, invoice_number, currency, sync_id, sync_status, device_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, last_modified`

	err := r.pool.QueryRow(ctx, query,
		inv.StudentID, inv.Session, inv.Term, inv.ClassFor, inv.BalanceFromPreviousTerm,
		inv.Status, inv.InvoiceNumber, inv.Currency, inv.SyncID, inv.SyncStatus, inv.DeviceID,
	).Scan(&inv.ID, &inv.LastModified)
	if err != nil {
		r.log.Error("failed to create invoice",
			"invoice_number", inv.InvoiceNumber, "error", err)
		return fmt.Errorf("create invoice: %w", err)
	}
	return nil
}

func (r *FinanceRepository) UpdateInvoice(ctx context.Context, inv *finance.Invoice) error {
	const query = `
		UPDATE invoices
		SET session = $1, term = $2, class_for = $3, balance_from_previous_term = $4,
		    status = $5, invoice_number = $6, currency = $7, sync_status = $8,
		    device_id = $9, last_modified = NOW()
		WHERE sync_id = $10
		RETURNING id, last_modified`

	err := r.pool.QueryRow(ctx, query,
		inv.Session, inv.Term, inv.ClassFor, inv.BalanceFromPreviousTerm,
		inv.Status, inv.InvoiceNumber, inv.Currency, inv.SyncStatus,
		inv.DeviceID, inv.SyncID,
	).Scan(&inv.ID, &inv.LastModified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return finance.ErrInvoiceNotFound
		}
		r.log.Error("failed to update invoice", "sync_id", inv.SyncID.String(), "error", err)
		return fmt.Errorf("update invoice: %w", err)
	}
	return nil
}

func (r *FinanceRepository) InvoiceChangesSince(ctx context.Context, since time.Time) ([]finance.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices i
		JOIN students s ON s.id = i.student_id
		WHERE i.last_modified > $1
		ORDER BY i.last_modified`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		r.log.Error("failed to list invoice changes", "error", err)
		return nil, fmt.Errorf("invoice changes: %w", err)
	}
	defer rows.Close()

	var out []finance.Invoice
	for rows.Next() {
		inv, err := r.scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

func (r *FinanceRepository) CountInvoiceNumbers(ctx context.Context, prefix string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM invoices WHERE invoice_number LIKE $1 || '%'`, prefix).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count invoice numbers: %w", err)
	}
	return n, nil
}

func (r *FinanceRepository) InvoiceNumberTaken(ctx context.Context, number string) (bool, error) {
	var taken bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM invoices WHERE invoice_number = $1)`, number).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check invoice number: %w", err)
	}
	return taken, nil
}

func (r *FinanceRepository) scanInvoice(row pgx.Row) (*finance.Invoice, error) {
	var inv finance.Invoice
	err := row.Scan(
		&inv.ID, &inv.StudentID, &inv.StudentSyncID, &inv.Session, &inv.Term,
		&inv.ClassFor, &inv.BalanceFromPreviousTerm, &inv.Status,
		&inv.InvoiceNumber, &inv.Currency,
		&inv.SyncID, &inv.SyncStatus, &inv.LastModified, &inv.DeviceID,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

const itemColumns = `t.id, t.invoice_id, i.sync_id, t.description, t.amount,
	       t.sync_id, t.sync_status, t.last_modified, t.device_id`

func (r *FinanceRepository) GetItemBySyncID(ctx context.Context, syncID uuid.UUID) (*finance.InvoiceItem, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM invoice_items t
		JOIN invoices i ON i.id = t.invoice_id
		WHERE t.sync_id = $1`

	item, err := r.scanItem(r.pool.QueryRow(ctx, query, syncID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, finance.ErrItemNotFound
		}
		r.log.Error("failed to get invoice item", "sync_id", syncID.String(), "error", err)
		return nil, fmt.Errorf("get invoice item: %w", err)
	}
	return item, nil
}

func (r *FinanceRepository) CreateItem(ctx context.Context, item *finance.InvoiceItem) error {
	const query = `
		INSERT INTO invoice_items (invoice_id, description, amount, sync_id, sync_status, device_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, last_modified`

	err := r.pool.QueryRow(ctx, query,
		item.InvoiceID, item.Description, item.Amount,
		item.SyncID, item.SyncStatus, item.DeviceID,
	).Scan(&item.ID, &item.LastModified)
	if err != nil {
		r.log.Error("failed to create invoice item", "sync_id", item.SyncID.String(), "error", err)
		return fmt.Errorf("create invoice item: %w", err)
	}
	return nil
}

func (r *FinanceRepository) UpdateItem(ctx context.Context, item *finance.InvoiceItem) error {
	const query = `
		UPDATE invoice_items
		SET description = $1, amount = $2, sync_status = $3, device_id = $4,
		    last_modified = NOW()
		WHERE sync_id = $5
		RETURNING id, last_modified`

	err := r.pool.QueryRow(ctx, query,
		item.Description, item.Amount, item.SyncStatus, item.DeviceID, item.SyncID,
	).Scan(&item.ID, &item.LastModified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return finance.ErrItemNotFound
		}
		r.log.Error("failed to update invoice item", "sync_id", item.SyncID.String(), "error", err)
		return fmt.Errorf("update invoice item: %w", err)
	}
	return nil
}

func (r *FinanceRepository) ItemChangesSince(ctx context.Context, since time.Time) ([]finance.InvoiceItem, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM invoice_items t
		JOIN invoices i ON i.id = t.invoice_id
		WHERE t.last_modified > $1
		ORDER BY t.last_modified`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		r.log.Error("failed to list invoice item changes", "error", err)
		return nil, fmt.Errorf("invoice item changes: %w", err)
	}
	defer rows.Close()

	var out []finance.InvoiceItem
	for rows.Next() {
		item, err := r.scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice item: %w", err)
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

func (r *FinanceRepository) scanItem(row pgx.Row) (*finance.InvoiceItem, error) {
	var item finance.InvoiceItem
	err := row.Scan(
		&item.ID, &item.InvoiceID, &item.InvoiceSyncID, &item.Description, &item.Amount,
		&item.SyncID, &item.SyncStatus, &item.LastModified, &item.DeviceID,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

const receiptColumns = `c.id, c.invoice_id, i.sync_id, c.receipt_number, c.amount_paid,
	       c.payment_method, c.date_paid, c.comment, c.reference_code,
	       c.sync_id, c.sync_status, c.last_modified, c.device_id`

func (r *FinanceRepository) GetReceiptBySyncID(ctx context.Context, syncID uuid.UUID) (*finance.Receipt, error) {
	query := `
		SELECT ` + receiptColumns + `
		FROM receipts c
		JOIN invoices i ON i.id = c.invoice_id
		WHERE c.sync_id = $1`

	rcpt, err := r.scanReceipt(r.pool.QueryRow(ctx, query, syncID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, finance.ErrReceiptNotFound
		}
		r.log.Error("failed to get receipt", "sync_id", syncID.String(), "error", err)
		return nil, fmt.Errorf("get receipt: %w", err)
	}
	return rcpt, nil
}

func (r *FinanceRepository) CreateReceipt(ctx context.Context, rcpt *finance.Receipt) error {
	const query = `
		INSERT INTO receipts
		       (invoice_id, receipt_number, amount_paid, payment_method, date_paid,
		        comment, reference_code, sync_id, sync_status, device_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, last_modified`

	err := r.pool.QueryRow(ctx, query,
		rcpt.InvoiceID, rcpt.ReceiptNumber, rcpt.AmountPaid, rcpt.PaymentMethod,
		rcpt.DatePaid, rcpt.Comment, rcpt.ReferenceCode,
		rcpt.SyncID, rcpt.SyncStatus, rcpt.DeviceID,
	).Scan(&rcpt.ID, &rcpt.LastModified)
	if err != nil {
		r.log.Error("failed to create receipt",
			"receipt_number", rcpt.ReceiptNumber, "error", err)
		return fmt.Errorf("create receipt: %w", err)
	}
	return nil
}

func (r *FinanceRepository) UpdateReceipt(ctx context.Context, rcpt *finance.Receipt) error {
	const query = `
		UPDATE receipts
		SET receipt_number = $1, amount_paid = $2, payment_method = $3,
		    date_paid = $4, comment = $5, reference_code = $6, sync_status = $7,
		    device_id = $8, last_modified = NOW()
		WHERE sync_id = $9
		RETURNING id, last_modified`

	err := r.pool.QueryRow(ctx, query,
		rcpt.ReceiptNumber, rcpt.AmountPaid, rcpt.PaymentMethod,
		rcpt.DatePaid, rcpt.Comment, rcpt.ReferenceCode, rcpt.SyncStatus,
		rcpt.DeviceID, rcpt.SyncID,
	).Scan(&rcpt.ID, &rcpt.LastModified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return finance.ErrReceiptNotFound
		}
		r.log.Error("failed to update receipt", "sync_id", rcpt.SyncID.String(), "error", err)
		return fmt.Errorf("update receipt: %w", err)
	}
	return nil
}

func (r *FinanceRepository) ReceiptChangesSince(ctx context.Context, since time.Time) ([]finance.Receipt, error) {
	query := `
		SELECT ` + receiptColumns + `
		FROM receipts c
		JOIN invoices i ON i.id = c.invoice_id
		WHERE c.last_modified > $1
		ORDER BY c.last_modified`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		r.log.Error("failed to list receipt changes", "error", err)
		return nil, fmt.Errorf("receipt changes: %w", err)
	}
	defer rows.Close()

	var out []finance.Receipt
	for rows.Next() {
		rcpt, err := r.scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		out = append(out, *rcpt)
	}
	return out, rows.Err()
}

func (r *FinanceRepository) CountReceiptNumbers(ctx context.Context, prefix string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM receipts WHERE receipt_number LIKE $1 || '%'`, prefix).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count receipt numbers: %w", err)
	}
	return n, nil
}

func (r *FinanceRepository) ReceiptNumberTaken(ctx context.Context, number string) (bool, error) {
	var taken bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM receipts WHERE receipt_number = $1)`, number).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check receipt number: %w", err)
	}
	return taken, nil
}

func (r *FinanceRepository) scanReceipt(row pgx.Row) (*finance.Receipt, error) {
	var rcpt finance.Receipt
	err := row.Scan(
		&rcpt.ID, &rcpt.InvoiceID, &rcpt.InvoiceSyncID, &rcpt.ReceiptNumber, &rcpt.AmountPaid,
		&rcpt.PaymentMethod, &rcpt.DatePaid, &rcpt.Comment, &rcpt.ReferenceCode,
		&rcpt.SyncID, &rcpt.SyncStatus, &rcpt.LastModified, &rcpt.DeviceID,
	)
	if err != nil {
		return nil, err
	}
	return &rcpt, nil
}
