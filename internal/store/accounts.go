package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/bokbank/server/internal/domain"
)

// TableAccounts is the accounts table name, usable as an observation
// dependency.
const TableAccounts = "account"

const accountColumns = `id, bsb, number, name, product, balance_amount, balance_currency, updated_by`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		account   domain.Account
		amount    string
		currency  string
		updatedBy sql.NullString
	)
	err := row.Scan(
		&account.ID,
		&account.BSB,
		&account.Number,
		&account.Name,
		&account.Product,
		&amount,
		&currency,
		&updatedBy,
	)
	if err != nil {
		return domain.Account{}, err
	}
	account.Balance, err = domain.NewMoney(amount, currency)
	if err != nil {
		return domain.Account{}, fmt.Errorf("store: corrupt account balance: %w", err)
	}
	account.UpdatedBy = updatedBy.String
	return account, nil
}

// Accounts returns every account in the partition, ordered by id.
func Accounts(ctx context.Context, tx *Tx) ([]domain.Account, error) {
	rows, err := tx.Query(ctx, `SELECT `+accountColumns+` FROM account ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// AccountByID returns the account with the given id, or nil if it
// doesn't exist.
func AccountByID(ctx context.Context, tx *Tx, id string) (*domain.Account, error) {
	row := tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM account WHERE id = ?`, id)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get account: %w", err)
	}
	return &account, nil
}

// SaveAccount inserts or replaces an account row.
func SaveAccount(ctx context.Context, tx *Tx, account domain.Account) error {
	tx.touch(TableAccounts)
	_, err := tx.Exec(ctx, `
		INSERT OR REPLACE INTO account (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.BSB,
		account.Number,
		account.Name,
		string(account.Product),
		account.Balance.Amount.String(),
		account.Balance.Currency,
		nullable(account.UpdatedBy),
	)
	if err != nil {
		return fmt.Errorf("store: save account: %w", err)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Accounts returns every account in the partition as a one-shot read.
func (s *Store) Accounts(ctx context.Context) ([]domain.Account, error) {
	var accounts []domain.Account
	err := s.Read(ctx, func(ctx context.Context, tx *Tx) error {
		var err error
		accounts, err = Accounts(ctx, tx)
		return err
	})
	return accounts, err
}

// Account returns the account with the given id, or nil if absent.
func (s *Store) Account(ctx context.Context, id string) (*domain.Account, error) {
	var account *domain.Account
	err := s.Read(ctx, func(ctx context.Context, tx *Tx) error {
		var err error
		account, err = AccountByID(ctx, tx, id)
		return err
	})
	return account, err
}

// ObserveAccounts returns a live sequence of the partition's accounts,
// re-emitted whenever a commit changes them.
func (s *Store) ObserveAccounts(ctx context.Context) *Observation[[]domain.Account] {
	return Observe(ctx, s, []string{TableAccounts}, accountsEqual, Accounts)
}

func accountsEqual(a, b []domain.Account) bool {
	return slices.EqualFunc(a, b, domain.Account.Equal)
}
