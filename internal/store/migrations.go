package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bokbank/server/internal/domain"
)

// migration is a single idempotent schema step, identified by a stable
// name. Applied migrations are recorded in schema_migrations so that
// re-running the runner is a no-op.
type migration struct {
	name  string
	apply func(ctx context.Context, tenant string, tx *Tx) error
}

// migrations lists every migration to run on a partition, in order.
var migrations = []migration{
	{name: "creation", apply: migrateCreation},
	{name: "demo", apply: migrateDemo},
}

// migrate applies any migrations not yet recorded for this partition,
// in list order, each inside its own transaction.
func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name       TEXT NOT NULL PRIMARY KEY,
			applied_at TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("store: create migration table: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE name = ?`, m.name).Scan(&count)
		if err != nil {
			return fmt.Errorf("store: check migration %q: %w", m.name, err)
		}
		if count > 0 {
			continue
		}

		m := m
		err = s.Write(ctx, func(ctx context.Context, tx *Tx) error {
			if err := m.apply(ctx, s.tenant, tx); err != nil {
				return err
			}
			_, err := tx.Exec(ctx,
				`INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)`,
				m.name, time.Now().UTC().Format(time.RFC3339Nano))
			return err
		})
		if err != nil {
			return fmt.Errorf("store: migration %q: %w", m.name, err)
		}
	}

	return nil
}

// migrateCreation creates the accounts, merchants and transactions tables.
func migrateCreation(ctx context.Context, _ string, tx *Tx) error {
	statements := []string{
		`CREATE TABLE account (
			id               TEXT NOT NULL PRIMARY KEY,
			bsb              TEXT NOT NULL,
			number           TEXT NOT NULL,
			name             TEXT NOT NULL,
			product          TEXT NOT NULL,
			balance_amount   TEXT NOT NULL,
			balance_currency TEXT NOT NULL,
			updated_by       TEXT
		)`,
		`CREATE TABLE merchant (
			id         TEXT NOT NULL PRIMARY KEY,
			name       TEXT NOT NULL,
			address    TEXT,
			latitude   REAL,
			longitude  REAL,
			logo_url   TEXT NOT NULL,
			updated_by TEXT
		)`,
		`CREATE TABLE txn (
			id         TEXT NOT NULL PRIMARY KEY,
			account_id TEXT NOT NULL REFERENCES account (id),
			instant    TEXT NOT NULL,
			amount     TEXT NOT NULL,
			currency   TEXT NOT NULL,
			description TEXT NOT NULL,
			category   TEXT NOT NULL,
			details    TEXT NOT NULL,
			updated_by TEXT
		)`,
		`CREATE INDEX idx_txn_account ON txn (account_id)`,
	}
	for _, statement := range statements {
		if _, err := tx.Exec(ctx, statement); err != nil {
			return err
		}
	}
	return nil
}

// migrateDemo populates demo data. Only the demo tenant gets seeded; every
// other partition starts empty.
func migrateDemo(ctx context.Context, tenant string, tx *Tx) error {
	if tenant != "demo" {
		return nil
	}

	transacting := domain.Account{
		ID:      "888-888/999999999",
		BSB:     "888-888",
		Number:  "999999999",
		Name:    "Transaction Account",
		Product: domain.ProductTransacting,
		Balance: domain.MustMoney("100", "AUD"),
	}
	savings := domain.Account{
		ID:      "888-888/999999998",
		BSB:     "888-888",
		Number:  "999999998",
		Name:    "Savings Account",
		Product: domain.ProductSavings,
		Balance: domain.MustMoney("0", "AUD"),
	}
	for _, account := range []domain.Account{transacting, savings} {
		if err := SaveAccount(ctx, tx, account); err != nil {
			return err
		}
	}

	for _, merchant := range demoMerchants() {
		if err := SaveMerchant(ctx, tx, merchant); err != nil {
			return err
		}
	}

	for _, txnRecord := range demoTransactions(transacting) {
		if err := InsertTransaction(ctx, tx, txnRecord); err != nil {
			return err
		}
	}

	return nil
}

func demoMerchants() []domain.Merchant {
	address := func(s string) *string { return &s }
	return []domain.Merchant{
		{
			ID:       "merchant-aldi",
			Name:     "ALDI",
			Address:  address("501 Swanston St, Melbourne VIC 3000"),
			Location: &domain.Location{Latitude: -37.8076, Longitude: 144.9629},
			LogoURL:  "https://logos.bokbank.example/aldi.png",
		},
		{
			ID:       "merchant-afterpay",
			Name:     "Afterpay",
			LogoURL:  "https://logos.bokbank.example/afterpay.png",
			Location: nil,
		},
		{
			ID:       "merchant-coffee",
			Name:     "Little Collins Espresso",
			Address:  address("200 Little Collins St, Melbourne VIC 3000"),
			Location: &domain.Location{Latitude: -37.8152, Longitude: 144.9687},
			LogoURL:  "https://logos.bokbank.example/little-collins.png",
		},
	}
}

func demoTransactions(transacting domain.Account) []domain.Transaction {
	now := time.Now().UTC()
	card := func(merchantID string) domain.Details {
		return domain.Details{Type: domain.DetailsCard, MerchantID: merchantID}
	}
	return []domain.Transaction{
		{
			ID:          uuid.NewString(),
			AccountID:   transacting.ID,
			Instant:     now.Add(-72 * time.Hour),
			Amount:      domain.MustMoney("-42.50", "AUD"),
			Description: "ALDI Melbourne",
			Category:    "Groceries",
			Details:     card("merchant-aldi"),
		},
		{
			ID:          uuid.NewString(),
			AccountID:   transacting.ID,
			Instant:     now.Add(-48 * time.Hour),
			Amount:      domain.MustMoney("-15.00", "AUD"),
			Description: "Afterpay instalment",
			Category:    "Shopping",
			Details:     card("merchant-afterpay"),
		},
		{
			ID:          uuid.NewString(),
			AccountID:   transacting.ID,
			Instant:     now.Add(-4 * time.Hour),
			Amount:      domain.MustMoney("-4.80", "AUD"),
			Description: "Little Collins Espresso",
			Category:    "Eating and Drinking Out",
			Details:     card("merchant-coffee"),
		},
	}
}
