package orders

import (
	"context"
	"errors"
	"fmt"
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&TransactionError{Err: errors.New("reset")}))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", &TransactionError{Err: context.DeadlineExceeded})))
	assert.False(t, IsRetryable(&InsufficientStockError{ProductID: "p"}))
	assert.False(t, IsRetryable(&ProductNotFoundError{ProductID: "p"}))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestClassify(t *testing.T) {
	domain := []error{
		&InvalidInputError{Problems: []string{"x"}},
		&ProductNotFoundError{ProductID: "p"},
		&InsufficientStockError{ProductID: "p", Requested: 2, Available: 1},
	}
	for _, err := range domain {
		assert.Same(t, err, classify(err))
	}

	wrapped := classify(errors.New("deadlock detected"))
	assert.ErrorIs(t, wrapped, ErrTransaction)
	assert.EqualError(t, wrapped, "transaction failed: deadlock detected")
}

func TestParseStatus(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusShipped, StatusCompleted, StatusCancelled} {
		got, err := ParseStatus(string(s))
		assert.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseStatus("LOST")
	assert.Error(t, err)
}

func TestLowStockIsInclusive(t *testing.T) {
	assert.True(t, Product{StockLevel: 10, LowStockThreshold: 10}.LowStock())
	assert.False(t, Product{StockLevel: 11, LowStockThreshold: 10}.LowStock())
}
