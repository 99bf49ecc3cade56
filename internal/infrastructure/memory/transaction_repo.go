package memory

import (
	"context"
	"sort"
	"sync"

	"fxconvert-service/internal/application"
	"fxconvert-service/internal/domain"
)

var _ application.TransactionRepo = (*TransactionRepo)(nil)

// TransactionRepo keeps transactions in memory; used with STORAGE=memory and in tests.
type TransactionRepo struct {
	mu    sync.RWMutex
	items []domain.Transaction
	ids   map[string]struct{}
}

func NewTransactionRepo() *TransactionRepo {
	return &TransactionRepo{ids: map[string]struct{}{}}
}

func (r *TransactionRepo) Insert(_ context.Context, tx domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.ids[tx.ID]; dup {
		return application.ErrConflict
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = tx.Timestamp
	}
	r.ids[tx.ID] = struct{}{}
	r.items = append(r.items, tx)
	return nil
}

// List orders by timestamp descending, ties broken by ID.
func (r *TransactionRepo) List(_ context.Context, offset, limit int) ([]domain.Transaction, int, error) {
	r.mu.RLock()
	sorted := make([]domain.Transaction, len(r.items))
	copy(sorted, r.items)
	r.mu.RUnlock()

	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].Timestamp.After(sorted[j].Timestamp)
		}
		return sorted[i].ID > sorted[j].ID
	})
	total := len(sorted)
	if offset >= total {
		return []domain.Transaction{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return sorted[offset:end], total, nil
}

func (r *TransactionRepo) Ping(context.Context) error { return nil }
