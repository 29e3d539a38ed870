package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/monpay/relayer/core"
	"github.com/monpay/relayer/ports"
)

// MemoryDirectory is an in-memory implementation of the AccountDirectory
// interface. The mutex makes nonce consumption an atomic compare-and-swap.
type MemoryDirectory struct {
	accounts map[string]*core.Account
	mu       sync.RWMutex
}

// NewMemoryDirectory creates a new in-memory account directory
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{accounts: make(map[string]*core.Account)}
}

func (d *MemoryDirectory) Get(ctx context.Context, address string) (*core.Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	acct, ok := d.accounts[address]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *acct
	return &cp, nil
}

func (d *MemoryDirectory) PutNonce(ctx context.Context, address, nonce string, issuedAt time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	acct, ok := d.accounts[address]
	if !ok {
		acct = &core.Account{Address: address, CreatedAt: issuedAt}
		d.accounts[address] = acct
	}
	acct.Nonce = nonce
	acct.NonceIssuedAt = issuedAt
	return nil
}

func (d *MemoryDirectory) ConsumeNonce(ctx context.Context, address, expected, next string, at time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	acct, ok := d.accounts[address]
	if !ok || acct.Nonce == "" || acct.Nonce != expected {
		return core.ErrNoPendingChallenge
	}
	acct.Nonce = next
	acct.NonceIssuedAt = at
	acct.SessionIssuedAt = at
	return nil
}

// MemoryTransactionStore is an in-memory append-only transaction record
// store, idempotent on the receipt ID.
type MemoryTransactionStore struct {
	records map[string]*core.TransactionRecord
	order   []string
	mu      sync.RWMutex
}

// NewMemoryTransactionStore creates a new in-memory transaction store
func NewMemoryTransactionStore() *MemoryTransactionStore {
	return &MemoryTransactionStore{records: make(map[string]*core.TransactionRecord)}
}

func (s *MemoryTransactionStore) Insert(ctx context.Context, rec *core.TransactionRecord) (*core.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[rec.ID]; ok {
		cp := *existing
		return &cp, nil
	}
	cp := *rec
	s.records[rec.ID] = &cp
	s.order = append(s.order, rec.ID)
	out := cp
	return &out, nil
}

func (s *MemoryTransactionStore) FindByID(ctx context.Context, id string) (*core.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryTransactionStore) ListByAddress(ctx context.Context, address string, limit int) ([]core.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.TransactionRecord
	// newest first
	for i := len(s.order) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		rec := s.records[s.order[i]]
		if rec.From == address || rec.To == address {
			out = append(out, *rec)
		}
	}
	return out, nil
}

// Len reports the number of stored records.
func (s *MemoryTransactionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

type subscriptionKey struct {
	subscriber string
	planID     uint64
}

// MemorySubscriptionStore is an in-memory implementation of the
// SubscriptionStore interface.
type MemorySubscriptionStore struct {
	subs map[subscriptionKey]*core.Subscription
	mu   sync.RWMutex
}

// NewMemorySubscriptionStore creates a new in-memory subscription store
func NewMemorySubscriptionStore() *MemorySubscriptionStore {
	return &MemorySubscriptionStore{subs: make(map[subscriptionKey]*core.Subscription)}
}

func (s *MemorySubscriptionStore) Get(ctx context.Context, subscriber string, planID uint64) (*core.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[subscriptionKey{subscriber, planID}]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (s *MemorySubscriptionStore) Upsert(ctx context.Context, sub *core.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *sub
	s.subs[subscriptionKey{sub.Subscriber, sub.PlanID}] = &cp
	return nil
}

func (s *MemorySubscriptionStore) SetAutoRenew(ctx context.Context, subscriber string, planID uint64, autoRenew bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[subscriptionKey{subscriber, planID}]
	if !ok {
		return core.ErrNotFound
	}
	sub.AutoRenew = autoRenew
	sub.UpdatedAt = time.Now()
	return nil
}

func (s *MemorySubscriptionStore) UpdateExpiry(ctx context.Context, subscriber string, planID uint64, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[subscriptionKey{subscriber, planID}]
	if !ok {
		return core.ErrNotFound
	}
	sub.ExpiresAt = expiresAt
	sub.UpdatedAt = time.Now()
	return nil
}

func (s *MemorySubscriptionStore) ListBySubscriber(ctx context.Context, subscriber string) ([]core.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Subscription
	for key, sub := range s.subs {
		if key.subscriber == subscriber {
			out = append(out, *sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlanID < out[j].PlanID })
	return out, nil
}

func (s *MemorySubscriptionStore) FindDue(ctx context.Context, now time.Time, limit int) ([]core.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Subscription
	for _, sub := range s.subs {
		if sub.Due(now) {
			out = append(out, *sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var (
	_ ports.AccountDirectory  = (*MemoryDirectory)(nil)
	_ ports.TransactionStore  = (*MemoryTransactionStore)(nil)
	_ ports.SubscriptionStore = (*MemorySubscriptionStore)(nil)
)
