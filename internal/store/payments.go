package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bokbank/server/internal/domain"
)

// Transfer executes a same-currency transfer between two of the tenant's
// accounts inside one write transaction, preventing race conditions: both
// account balances and both ledger entries commit together or not at all.
//
// Any failure before the balances are adjusted (unknown source, unknown
// target, insufficient funds) rolls the transaction back with no persisted
// side effects.
func (s *Store) Transfer(ctx context.Context, source, target string, amount domain.Money) (domain.TransferDetails, error) {
	var details domain.TransferDetails

	err := s.Write(ctx, func(ctx context.Context, tx *Tx) error {
		// Verify accounts and balances
		sourceAccount, err := AccountByID(ctx, tx, source)
		if err != nil {
			return err
		}
		if sourceAccount == nil {
			return fmt.Errorf("%w: %s", domain.ErrInvalidSourceAccount, source)
		}
		targetAccount, err := AccountByID(ctx, tx, target)
		if err != nil {
			return err
		}
		if targetAccount == nil {
			return fmt.Errorf("%w: %s", domain.ErrInvalidTargetAccount, target)
		}

		cmp, err := sourceAccount.Balance.Cmp(amount)
		if err != nil {
			return err
		}
		if cmp < 0 {
			return domain.ErrInsufficientFunds
		}

		// Make the transfer
		marker := domain.UpdatedByFromContext(ctx)
		sourceAccount.Balance, err = sourceAccount.Balance.Sub(amount)
		if err != nil {
			return err
		}
		sourceAccount.UpdatedBy = marker
		targetAccount.Balance, err = targetAccount.Balance.Add(amount)
		if err != nil {
			return err
		}
		targetAccount.UpdatedBy = marker

		// Create transactions on both accounts, sharing one receipt
		receipt := uuid.NewString()
		now := time.Now().UTC()
		description := fmt.Sprintf("Transfer from %s to %s", sourceAccount.Number, targetAccount.Number)
		transferDetails := domain.Details{
			Type:          domain.DetailsTransfer,
			FromAccount:   sourceAccount.ID,
			ToAccount:     targetAccount.ID,
			ReceiptNumber: receipt,
		}
		sourceTransaction := domain.Transaction{
			ID:          uuid.NewString(),
			AccountID:   sourceAccount.ID,
			Instant:     now,
			Amount:      amount.Negated(),
			Description: description,
			Category:    "Transfers",
			Details:     transferDetails,
			UpdatedBy:   marker,
		}
		targetTransaction := domain.Transaction{
			ID:          uuid.NewString(),
			AccountID:   targetAccount.ID,
			Instant:     now,
			Amount:      amount,
			Description: description,
			Category:    "Transfers",
			Details:     transferDetails,
			UpdatedBy:   marker,
		}

		// Save all of those
		if err := SaveAccount(ctx, tx, *sourceAccount); err != nil {
			return err
		}
		if err := SaveAccount(ctx, tx, *targetAccount); err != nil {
			return err
		}
		if err := InsertTransaction(ctx, tx, sourceTransaction); err != nil {
			return err
		}
		if err := InsertTransaction(ctx, tx, targetTransaction); err != nil {
			return err
		}

		details = domain.TransferDetails{
			FromAccount:   sourceAccount.ID,
			ToAccount:     targetAccount.ID,
			ReceiptNumber: receipt,
		}
		return nil
	})

	return details, err
}
