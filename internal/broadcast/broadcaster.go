// Package broadcast streams authoritative ledger changes to one connected
// subscriber. It watches the tenant's accounts, merchants and transactions,
// diffs each new snapshot against what was previously sent, and emits wire
// events in a stable order.
package broadcast

import (
	"context"

	"github.com/bokbank/server/internal/diff"
	"github.com/bokbank/server/internal/domain"
	"github.com/bokbank/server/internal/store"
)

// EventType tags a wire event sent over the sync channel.
type EventType string

const (
	EventAccountUpdated     EventType = "account-updated"
	EventAccountDeleted     EventType = "account-deleted"
	EventMerchantUpdated    EventType = "merchant-updated"
	EventMerchantDeleted    EventType = "merchant-deleted"
	EventTransactionUpdated EventType = "transaction-updated"
	EventTransactionDeleted EventType = "transaction-deleted"
)

// Event is a single tagged sync message. Updated events carry the full
// entity; deleted events carry only the identifier.
type Event struct {
	Type        EventType           `json:"type"`
	Account     *domain.Account     `json:"account,omitempty"`
	Merchant    *domain.Merchant    `json:"merchant,omitempty"`
	Transaction *domain.Transaction `json:"transaction,omitempty"`
	ID          string              `json:"id,omitempty"`
}

// EventWriter delivers events to the transport. An error from WriteEvent
// fails the broadcast and is surfaced to the caller so the transport can
// close the connection.
type EventWriter interface {
	WriteEvent(ctx context.Context, event Event) error
}

// Broadcaster runs the per-connection sync loop against one partition.
type Broadcaster struct {
	store *store.Store
}

// New creates a Broadcaster for the given partition store.
func New(s *store.Store) *Broadcaster {
	return &Broadcaster{store: s}
}

// Run opens the three observations (accounts, merchants, transactions),
// combines them with latest-value semantics, and writes diff events to w
// until the context is cancelled (returns nil), the store shuts down
// (returns nil), or an observation or write fails (returns the error).
//
// The first emission happens once all three observations have produced an
// initial snapshot. After that, any single update re-runs the diffs for
// all three categories; categories whose snapshot is unchanged emit
// nothing. Events are always written in category order (accounts, then
// merchants, then transactions) and each category's baseline is replaced
// after its diffs are sent.
func (b *Broadcaster) Run(ctx context.Context, w EventWriter) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	accounts := b.store.ObserveAccounts(ctx)
	merchants := b.store.ObserveMerchants(ctx)
	transactions := b.store.ObserveTransactions(ctx)

	var (
		accountCh     = accounts.Values()
		merchantCh    = merchants.Values()
		transactionCh = transactions.Values()

		currentAccounts     []domain.Account
		currentMerchants    []domain.Merchant
		currentTransactions []domain.Transaction
		haveAccounts        bool
		haveMerchants       bool
		haveTransactions    bool

		previousAccounts     []domain.Account
		previousMerchants    []domain.Merchant
		previousTransactions []domain.Transaction
	)

	for {
		select {
		case <-ctx.Done():
			return nil

		case snapshot, ok := <-accountCh:
			if !ok {
				return accounts.Err()
			}
			currentAccounts, haveAccounts = snapshot, true

		case snapshot, ok := <-merchantCh:
			if !ok {
				return merchants.Err()
			}
			currentMerchants, haveMerchants = snapshot, true

		case snapshot, ok := <-transactionCh:
			if !ok {
				return transactions.Err()
			}
			currentTransactions, haveTransactions = snapshot, true
		}

		if !haveAccounts || !haveMerchants || !haveTransactions {
			continue
		}

		// Send account changes
		for _, change := range diff.Changes(currentAccounts, previousAccounts) {
			if err := w.WriteEvent(ctx, accountEvent(change)); err != nil {
				return err
			}
		}
		previousAccounts = currentAccounts

		// Send merchant changes
		for _, change := range diff.Changes(currentMerchants, previousMerchants) {
			if err := w.WriteEvent(ctx, merchantEvent(change)); err != nil {
				return err
			}
		}
		previousMerchants = currentMerchants

		// Send transaction changes
		for _, change := range diff.Changes(currentTransactions, previousTransactions) {
			if err := w.WriteEvent(ctx, transactionEvent(change)); err != nil {
				return err
			}
		}
		previousTransactions = currentTransactions
	}
}

func accountEvent(change diff.Change[domain.Account]) Event {
	if change.Op == diff.Removed {
		return Event{Type: EventAccountDeleted, ID: change.Element.ID}
	}
	account := change.Element
	return Event{Type: EventAccountUpdated, Account: &account}
}

func merchantEvent(change diff.Change[domain.Merchant]) Event {
	if change.Op == diff.Removed {
		return Event{Type: EventMerchantDeleted, ID: change.Element.ID}
	}
	merchant := change.Element
	return Event{Type: EventMerchantUpdated, Merchant: &merchant}
}

func transactionEvent(change diff.Change[domain.Transaction]) Event {
	if change.Op == diff.Removed {
		return Event{Type: EventTransactionDeleted, ID: change.Element.ID}
	}
	transaction := change.Element
	return Event{Type: EventTransactionUpdated, Transaction: &transaction}
}
