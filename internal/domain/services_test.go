package domain_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bokbank/server/internal/domain"
)

// mockPayments is a mock implementation of domain.PaymentsRepository.
type mockPayments struct {
	transferFunc func(ctx context.Context, tenant, source, target string, amount domain.Money) (domain.TransferDetails, error)
	calls        int
}

func (m *mockPayments) Transfer(ctx context.Context, tenant, source, target string, amount domain.Money) (domain.TransferDetails, error) {
	m.calls++
	if m.transferFunc != nil {
		return m.transferFunc(ctx, tenant, source, target, amount)
	}
	return domain.TransferDetails{}, nil
}

// mockPublisher records published events.
type mockPublisher struct {
	events chan domain.TransferEvent
}

func (m *mockPublisher) PublishTransferCompleted(_ context.Context, event domain.TransferEvent) error {
	m.events <- event
	return nil
}

func TestTransferValidation(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		target  string
		amount  domain.Money
		wantErr error
	}{
		{
			name:    "same account",
			source:  "acc-1",
			target:  "acc-1",
			amount:  domain.MustMoney("10.00", "AUD"),
			wantErr: domain.ErrSameAccount,
		},
		{
			name:    "zero amount",
			source:  "acc-1",
			target:  "acc-2",
			amount:  domain.MustMoney("0", "AUD"),
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			source:  "acc-1",
			target:  "acc-2",
			amount:  domain.MustMoney("-5.00", "AUD"),
			wantErr: domain.ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payments := &mockPayments{}
			service := domain.NewTransferService(payments, nil)

			_, err := service.Transfer(context.Background(), "demo", tt.source, tt.target, tt.amount)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if payments.calls != 0 {
				t.Errorf("repository must not be called for invalid requests, got %d calls", payments.calls)
			}
		})
	}
}

func TestTransferDelegatesToRepository(t *testing.T) {
	want := domain.TransferDetails{
		FromAccount:   "acc-1",
		ToAccount:     "acc-2",
		ReceiptNumber: "receipt-1",
	}
	payments := &mockPayments{
		transferFunc: func(_ context.Context, tenant, source, target string, amount domain.Money) (domain.TransferDetails, error) {
			if tenant != "demo" || source != "acc-1" || target != "acc-2" {
				t.Errorf("unexpected arguments: %s %s %s", tenant, source, target)
			}
			return want, nil
		},
	}
	service := domain.NewTransferService(payments, nil)

	got, err := service.Transfer(context.Background(), "demo", "acc-1", "acc-2", domain.MustMoney("40.00", "AUD"))
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestTransferRepositoryErrorPropagates(t *testing.T) {
	payments := &mockPayments{
		transferFunc: func(context.Context, string, string, string, domain.Money) (domain.TransferDetails, error) {
			return domain.TransferDetails{}, domain.ErrInsufficientFunds
		},
	}
	publisher := &mockPublisher{events: make(chan domain.TransferEvent, 1)}
	service := domain.NewTransferService(payments, publisher)

	_, err := service.Transfer(context.Background(), "demo", "acc-1", "acc-2", domain.MustMoney("40.00", "AUD"))
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	select {
	case event := <-publisher.events:
		t.Errorf("no event should be published for a failed transfer, got %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTransferPublishesCompletionEvent(t *testing.T) {
	payments := &mockPayments{
		transferFunc: func(context.Context, string, string, string, domain.Money) (domain.TransferDetails, error) {
			return domain.TransferDetails{FromAccount: "acc-1", ToAccount: "acc-2", ReceiptNumber: "receipt-9"}, nil
		},
	}
	publisher := &mockPublisher{events: make(chan domain.TransferEvent, 1)}
	service := domain.NewTransferService(payments, publisher)

	amount := domain.MustMoney("40.00", "AUD")
	if _, err := service.Transfer(context.Background(), "demo", "acc-1", "acc-2", amount); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	select {
	case event := <-publisher.events:
		if event.Tenant != "demo" || event.ReceiptNumber != "receipt-9" {
			t.Errorf("unexpected event: %+v", event)
		}
		if !event.Amount.Equal(amount) {
			t.Errorf("expected amount %s, got %s", amount, event.Amount)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for transfer completed event")
	}
}
