package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/bokbank/server/internal/domain"
)

// TableTransactions is the transactions table name, usable as an
// observation dependency.
const TableTransactions = "txn"

const transactionColumns = `id, account_id, instant, amount, currency, description, category, details, updated_by`

func scanTransaction(row rowScanner) (domain.Transaction, error) {
	var (
		txn       domain.Transaction
		instant   string
		amount    string
		currency  string
		details   string
		updatedBy sql.NullString
	)
	err := row.Scan(
		&txn.ID,
		&txn.AccountID,
		&instant,
		&amount,
		&currency,
		&txn.Description,
		&txn.Category,
		&details,
		&updatedBy,
	)
	if err != nil {
		return domain.Transaction{}, err
	}

	txn.Instant, err = time.Parse(time.RFC3339Nano, instant)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("store: corrupt transaction instant: %w", err)
	}
	txn.Amount, err = domain.NewMoney(amount, currency)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("store: corrupt transaction amount: %w", err)
	}
	if err := json.Unmarshal([]byte(details), &txn.Details); err != nil {
		return domain.Transaction{}, fmt.Errorf("store: corrupt transaction details: %w", err)
	}
	txn.UpdatedBy = updatedBy.String
	return txn, nil
}

func collectTransactions(rows *sql.Rows) ([]domain.Transaction, error) {
	defer rows.Close()
	var transactions []domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan transaction: %w", err)
		}
		transactions = append(transactions, txn)
	}
	return transactions, rows.Err()
}

// Transactions returns every transaction in the partition, newest first.
func Transactions(ctx context.Context, tx *Tx) ([]domain.Transaction, error) {
	rows, err := tx.Query(ctx, `SELECT `+transactionColumns+` FROM txn ORDER BY instant DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("store: list transactions: %w", err)
	}
	return collectTransactions(rows)
}

// TransactionsForAccount returns every transaction on the given account,
// newest first.
func TransactionsForAccount(ctx context.Context, tx *Tx, accountID string) ([]domain.Transaction, error) {
	rows, err := tx.Query(ctx, `SELECT `+transactionColumns+` FROM txn WHERE account_id = ? ORDER BY instant DESC, id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("store: list account transactions: %w", err)
	}
	return collectTransactions(rows)
}

// TransactionByID returns the transaction with the given id, or nil if it
// doesn't exist.
func TransactionByID(ctx context.Context, tx *Tx, id string) (*domain.Transaction, error) {
	row := tx.QueryRow(ctx, `SELECT `+transactionColumns+` FROM txn WHERE id = ?`, id)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get transaction: %w", err)
	}
	return &txn, nil
}

// InsertTransaction inserts a new transaction row.
func InsertTransaction(ctx context.Context, tx *Tx, txn domain.Transaction) error {
	tx.touch(TableTransactions)

	details, err := json.Marshal(txn.Details)
	if err != nil {
		return fmt.Errorf("store: encode transaction details: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO txn (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID,
		txn.AccountID,
		txn.Instant.UTC().Format(time.RFC3339Nano),
		txn.Amount.Amount.String(),
		txn.Amount.Currency,
		txn.Description,
		txn.Category,
		string(details),
		nullable(txn.UpdatedBy),
	)
	if err != nil {
		return fmt.Errorf("store: insert transaction: %w", err)
	}
	return nil
}

// Transactions returns every transaction in the partition as a one-shot read.
func (s *Store) Transactions(ctx context.Context) ([]domain.Transaction, error) {
	var transactions []domain.Transaction
	err := s.Read(ctx, func(ctx context.Context, tx *Tx) error {
		var err error
		transactions, err = Transactions(ctx, tx)
		return err
	})
	return transactions, err
}

// AccountTransactions returns the transactions on one account as a
// one-shot read.
func (s *Store) AccountTransactions(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	var transactions []domain.Transaction
	err := s.Read(ctx, func(ctx context.Context, tx *Tx) error {
		var err error
		transactions, err = TransactionsForAccount(ctx, tx, accountID)
		return err
	})
	return transactions, err
}

// Transaction returns the transaction with the given id, or nil if absent.
func (s *Store) Transaction(ctx context.Context, id string) (*domain.Transaction, error) {
	var txn *domain.Transaction
	err := s.Read(ctx, func(ctx context.Context, tx *Tx) error {
		var err error
		txn, err = TransactionByID(ctx, tx, id)
		return err
	})
	return txn, err
}

// ObserveTransactions returns a live sequence of the partition's
// transactions, re-emitted whenever a commit changes them.
func (s *Store) ObserveTransactions(ctx context.Context) *Observation[[]domain.Transaction] {
	return Observe(ctx, s, []string{TableTransactions}, transactionsEqual, Transactions)
}

// ObserveAccountTransactions returns a live sequence of one account's
// transactions.
func (s *Store) ObserveAccountTransactions(ctx context.Context, accountID string) *Observation[[]domain.Transaction] {
	return Observe(ctx, s, []string{TableTransactions}, transactionsEqual,
		func(ctx context.Context, tx *Tx) ([]domain.Transaction, error) {
			return TransactionsForAccount(ctx, tx, accountID)
		})
}

func transactionsEqual(a, b []domain.Transaction) bool {
	return slices.EqualFunc(a, b, domain.Transaction.Equal)
}
