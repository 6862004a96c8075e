// Package memory is a transactional in-process storage driver. It backs every repository
// port plus the cashbox and valuation collaborators, and is used for local runs and tests.
package memory

import (
	"context"
	"sync"

	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	"github.com/SscSPs/finance_deal_ledger/internal/core/ports/collaborators"
	portsrepo "github.com/SscSPs/finance_deal_ledger/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

// txKey marks a context as running inside a transaction of one specific store.
type txKey struct{ store *Store }

type cashboxMovement struct {
	cashboxID string
	amount    decimal.Decimal
	result    collaborators.MoveResult
}

// state is everything a transaction can roll back.
type state struct {
	deals      map[string]domain.Deal
	finance    map[string]domain.FinanceDeal
	ledger     []domain.LedgerEntry
	lines      map[string][]domain.ScheduleLine
	pauses     map[string]domain.PausePeriod
	links      map[string]domain.CollateralLink
	chain      []domain.CollateralChainEvent
	valuations map[string]domain.AssetValuation
	cashboxes  map[string]decimal.Decimal
	movements  map[string]cashboxMovement
	audit      []collaborators.AuditRecord
}

// Store serializes transactions with a single mutex held for the whole unit of work.
// Calls made with a transaction context skip locking; other calls lock per call.
type Store struct {
	mu sync.Mutex
	state
}

var _ portsrepo.TransactionManager = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{state: state{
		deals:      make(map[string]domain.Deal),
		finance:    make(map[string]domain.FinanceDeal),
		lines:      make(map[string][]domain.ScheduleLine),
		pauses:     make(map[string]domain.PausePeriod),
		links:      make(map[string]domain.CollateralLink),
		valuations: make(map[string]domain.AssetValuation),
		cashboxes:  make(map[string]decimal.Decimal),
		movements:  make(map[string]cashboxMovement),
	}}
}

// NewRepositoryProvider wires the store into every port it implements.
func NewRepositoryProvider(store *Store) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		Tx:             store,
		DealRepo:       store,
		LedgerRepo:     store,
		ScheduleRepo:   store,
		PauseRepo:      store,
		CollateralRepo: store,
		Cashbox:        store,
		Valuations:     store,
		AuditLog:       store,
	}
}

func (s *Store) inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{store: s}).(bool)
	return ok
}

// lock acquires the store mutex unless ctx already owns it.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// WithinTx runs fn while holding the store lock. State is restored when fn fails or panics.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	saved := s.snapshot()
	committed := false
	defer func() {
		if !committed {
			s.state = saved
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{store: s}, true)); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *Store) snapshot() state {
	cp := state{
		deals:      make(map[string]domain.Deal, len(s.deals)),
		finance:    make(map[string]domain.FinanceDeal, len(s.finance)),
		ledger:     append([]domain.LedgerEntry(nil), s.ledger...),
		lines:      make(map[string][]domain.ScheduleLine, len(s.lines)),
		pauses:     make(map[string]domain.PausePeriod, len(s.pauses)),
		links:      make(map[string]domain.CollateralLink, len(s.links)),
		chain:      append([]domain.CollateralChainEvent(nil), s.chain...),
		valuations: make(map[string]domain.AssetValuation, len(s.valuations)),
		cashboxes:  make(map[string]decimal.Decimal, len(s.cashboxes)),
		movements:  make(map[string]cashboxMovement, len(s.movements)),
		audit:      append([]collaborators.AuditRecord(nil), s.audit...),
	}
	for k, v := range s.deals {
		cp.deals[k] = v
	}
	for k, v := range s.finance {
		cp.finance[k] = v
	}
	for k, v := range s.lines {
		cp.lines[k] = append([]domain.ScheduleLine(nil), v...)
	}
	for k, v := range s.pauses {
		cp.pauses[k] = v
	}
	for k, v := range s.links {
		cp.links[k] = v
	}
	for k, v := range s.valuations {
		cp.valuations[k] = v
	}
	for k, v := range s.cashboxes {
		cp.cashboxes[k] = v
	}
	for k, v := range s.movements {
		cp.movements[k] = v
	}
	return cp
}
