package finance

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNextInvoiceNumber(t *testing.T) {
	day := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

	repo := new(MockRepository)
	repo.On("CountInvoiceNumbers", mock.Anything, "INV-20240301-").Return(0, nil)
	repo.On("InvoiceNumberTaken", mock.Anything, "INV-20240301-000001").Return(false, nil)

	number, err := NextInvoiceNumber(context.Background(), repo, day)

	require.NoError(t, err)
	assert.Equal(t, "INV-20240301-000001", number)
}

func TestNextReceiptNumber_SkipsTakenCandidates(t *testing.T) {
	day := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

	// Две параллельные выписки успели занять два кандидата
	repo := new(MockRepository)
	repo.On("CountReceiptNumbers", mock.Anything, "RCPT-20240301-").Return(5, nil)
	repo.On("ReceiptNumberTaken", mock.Anything, "RCPT-20240301-000006").Return(true, nil)
	repo.On("ReceiptNumberTaken", mock.Anything, "RCPT-20240301-000007").Return(true, nil)
	repo.On("ReceiptNumberTaken", mock.Anything, "RCPT-20240301-000008").Return(false, nil)

	number, err := NextReceiptNumber(context.Background(), repo, day)

	require.NoError(t, err)
	assert.Equal(t, "RCPT-20240301-000008", number)
}

func TestNextInvoiceNumber_Exhausted(t *testing.T) {
	day := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

	repo := new(MockRepository)
	repo.On("CountInvoiceNumbers", mock.Anything, "INV-20240301-").Return(0, nil)
	for seq := 1; seq <= maxNumberAttempts; seq++ {
		repo.On("InvoiceNumberTaken", mock.Anything, fmt.Sprintf("INV-20240301-%06d", seq)).
			Return(true, nil)
	}

	_, err := NextInvoiceNumber(context.Background(), repo, day)

	assert.ErrorIs(t, err, ErrNumberExhausted)
}

func TestNextInvoiceNumber_CountError(t *testing.T) {
	day := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	boom := errors.New("connection reset")

	repo := new(MockRepository)
	repo.On("CountInvoiceNumbers", mock.Anything, "INV-20240301-").Return(0, boom)

	_, err := NextInvoiceNumber(context.Background(), repo, day)

	assert.ErrorIs(t, err, boom)
}
