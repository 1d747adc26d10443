package domain

import (
	"context"
	"errors"
	"log"
	"time"
)

var (
	// ErrInvalidSourceAccount is returned when the source account doesn't exist
	ErrInvalidSourceAccount = errors.New("invalid source account")

	// ErrInvalidTargetAccount is returned when the target account doesn't exist
	ErrInvalidTargetAccount = errors.New("invalid destination account")

	// ErrInsufficientFunds is returned when the source account doesn't have enough balance
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSameAccount is returned when source and target are the same account
	ErrSameAccount = errors.New("source and target must be different accounts")

	// ErrInvalidAmount is returned when the transfer amount is not positive
	ErrInvalidAmount = errors.New("invalid amount: must be positive")

	// ErrCurrencyMismatch is returned when two amounts of different currencies meet
	ErrCurrencyMismatch = errors.New("currency mismatch")
)

// PaymentsRepository executes transfers between two of a tenant's accounts
// as a single atomic unit.
type PaymentsRepository interface {
	// Transfer moves amount from the source account to the target account
	// within the tenant's partition. The entire operation happens inside
	// one storage transaction: either both accounts and both transaction
	// records are updated, or nothing is.
	Transfer(ctx context.Context, tenant, source, target string, amount Money) (TransferDetails, error)
}

// TransferEvent describes a completed transfer, published to external systems.
type TransferEvent struct {
	Tenant        string    `json:"tenant"`
	FromAccount   string    `json:"fromAccount"`
	ToAccount     string    `json:"toAccount"`
	ReceiptNumber string    `json:"receiptNumber"`
	Amount        Money     `json:"amount"`
	CompletedAt   time.Time `json:"completedAt"`
}

// EventPublisher publishes domain events to external systems (e.g. RabbitMQ).
type EventPublisher interface {
	PublishTransferCompleted(ctx context.Context, event TransferEvent) error
}

// TransferService handles the business logic for money transfers.
// It validates requests, delegates the atomic mutation to the payments
// repository, and emits a completion event when one is configured.
type TransferService struct {
	payments  PaymentsRepository
	publisher EventPublisher
}

// NewTransferService creates a new TransferService.
// Pass nil for publisher if no events should be emitted.
func NewTransferService(payments PaymentsRepository, publisher EventPublisher) *TransferService {
	return &TransferService{
		payments:  payments,
		publisher: publisher,
	}
}

// Transfer moves money between two of the tenant's accounts.
//
// Validation errors (same account, non-positive amount, unknown accounts,
// insufficient funds) are returned as typed errors and are never retried
// here: retrying without client intervention would repeat the same invalid
// request.
func (s *TransferService) Transfer(ctx context.Context, tenant, source, target string, amount Money) (TransferDetails, error) {
	if err := s.validate(source, target, amount); err != nil {
		return TransferDetails{}, err
	}

	details, err := s.payments.Transfer(ctx, tenant, source, target, amount)
	if err != nil {
		return TransferDetails{}, err
	}

	// The transfer has committed; publishing is best-effort so that a
	// transient broker failure doesn't make a committed transfer appear
	// to fail.
	if s.publisher != nil {
		event := TransferEvent{
			Tenant:        tenant,
			FromAccount:   details.FromAccount,
			ToAccount:     details.ToAccount,
			ReceiptNumber: details.ReceiptNumber,
			Amount:        amount,
			CompletedAt:   time.Now().UTC(),
		}
		go func() {
			if err := s.publisher.PublishTransferCompleted(context.Background(), event); err != nil {
				log.Printf("warning: failed to publish transfer completed event: %v", err)
			}
		}()
	}

	return details, nil
}

func (s *TransferService) validate(source, target string, amount Money) error {
	if source == target {
		return ErrSameAccount
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := ValidateCurrencyCode(amount.Currency); err != nil {
		return err
	}
	return nil
}
