package finance

import (
	"context"
	"fmt"
	"time"
)

// Номера документов человекочитаемы и монотонны в пределах дня:
// INV-20240301-000001, RCPT-20240301-000014. Последовательность
// строится от счетчика за день; на редкой гонке двух одновременных
// выписок кандидат может оказаться занят, тогда номер добирается
// ограниченным перебором.
const (
	invoiceNumberPrefix = "INV"
	receiptNumberPrefix = "RCPT"

	numberDayLayout   = "20060102"
	maxNumberAttempts = 100
)

type numberIndex struct {
	count func(ctx context.Context, prefix string) (int, error)
	taken func(ctx context.Context, number string) (bool, error)
}

func nextNumber(ctx context.Context, idx numberIndex, kind string, day time.Time) (string, error) {
	prefix := fmt.Sprintf("%s-%s-", kind, day.Format(numberDayLayout))

	seq, err := idx.count(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("count %s numbers: %w", kind, err)
	}
	seq++

	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		candidate := fmt.Sprintf("%s%06d", prefix, seq)
		busy, err := idx.taken(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("probe %s number: %w", kind, err)
		}
		if !busy {
			return candidate, nil
		}
		seq++
	}

	return "", fmt.Errorf("%w: prefix %s", ErrNumberExhausted, prefix)
}

// NextInvoiceNumber выделяет следующий свободный номер счета за день.
func NextInvoiceNumber(ctx context.Context, repo Repository, day time.Time) (string, error) {
	return nextNumber(ctx, numberIndex{
		count: repo.CountInvoiceNumbers,
		taken: repo.InvoiceNumberTaken,
	}, invoiceNumberPrefix, day)
}

// NextReceiptNumber выделяет следующий свободный номер квитанции за день.
func NextReceiptNumber(ctx context.Context, repo Repository, day time.Time) (string, error) {
	return nextNumber(ctx, numberIndex{
		count: repo.CountReceiptNumbers,
		taken: repo.ReceiptNumberTaken,
	}, receiptNumberPrefix, day)
}
