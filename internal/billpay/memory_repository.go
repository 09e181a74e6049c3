package billpay

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu    sync.RWMutex
	bills []BillPayment
}

// NewMemoryRepository builds an in-memory bill payment store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{}
}

func (r *memoryRepository) Create(_ context.Context, bill BillPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bills = append(r.bills, bill)
	return nil
}

func (r *memoryRepository) ListFor(_ context.Context, ownerID string) ([]BillPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []BillPayment
	for i := len(r.bills) - 1; i >= 0; i-- {
		if r.bills[i].OwnerID == ownerID {
			out = append(out, r.bills[i])
		}
	}
	return out, nil
}
