package domain

import (
	"time"
)

// Product is the type of banking product an account represents.
type Product string

const (
	ProductTransacting Product = "transacting"
	ProductSavings     Product = "savings"
)

// Account represents one of a user's bank accounts.
type Account struct {
	// Primary key. Seeded accounts use "<bsb>/<number>".
	ID string `json:"id"`

	// Bank-State-Branch code
	BSB string `json:"bsb"`

	// Main account number
	Number string `json:"number"`

	// Display name for the account
	Name string `json:"name"`

	// The type of product, eg transacting account or savings account
	Product Product `json:"product"`

	// Current amount of money held in the account.
	// The currency never changes after creation.
	Balance Money `json:"balance"`

	// Opaque token identifying the source of the last change to this record.
	// Passed through to sync subscribers so observability tooling can
	// correlate a change with its origin.
	UpdatedBy string `json:"updatedBy,omitempty"`
}

// Identity returns the account's unique key.
func (a Account) Identity() string { return a.ID }

// Equal reports whether two accounts are value-equal.
func (a Account) Equal(other Account) bool {
	return a.ID == other.ID &&
		a.BSB == other.BSB &&
		a.Number == other.Number &&
		a.Name == other.Name &&
		a.Product == other.Product &&
		a.Balance.Equal(other.Balance) &&
		a.UpdatedBy == other.UpdatedBy
}

// Location is a geographic coordinate for a merchant.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Merchant represents a merchant that transactions can be made against.
// Merchants are immutable once synced, except for last-writer updates.
type Merchant struct {
	ID string `json:"id"`

	// The display name of the merchant
	Name string `json:"name"`

	// The physical address of the merchant, if known
	Address *string `json:"address,omitempty"`

	// The merchant's location. Used to drive visual representations
	Location *Location `json:"location,omitempty"`

	// The URL where the merchant's logo can be fetched from
	LogoURL string `json:"logoURL"`

	UpdatedBy string `json:"updatedBy,omitempty"`
}

// Identity returns the merchant's unique key.
func (m Merchant) Identity() string { return m.ID }

// Equal reports whether two merchants are value-equal.
func (m Merchant) Equal(other Merchant) bool {
	if m.ID != other.ID || m.Name != other.Name || m.LogoURL != other.LogoURL || m.UpdatedBy != other.UpdatedBy {
		return false
	}
	if (m.Address == nil) != (other.Address == nil) {
		return false
	}
	if m.Address != nil && *m.Address != *other.Address {
		return false
	}
	if (m.Location == nil) != (other.Location == nil) {
		return false
	}
	if m.Location != nil && *m.Location != *other.Location {
		return false
	}
	return true
}

// DetailsType discriminates the transaction details variant.
type DetailsType string

const (
	// DetailsCard is a card purchase at a merchant (online or in-person)
	DetailsCard DetailsType = "card"

	// DetailsPayment is a payment between two bank accounts, not
	// necessarily with the same owner
	DetailsPayment DetailsType = "payment"

	// DetailsTransfer is a transfer between the user's own accounts
	DetailsTransfer DetailsType = "transfer"
)

// Details holds the type-specific portion of a transaction.
// Card transactions set MerchantID; payments and transfers set the
// account pair and the shared receipt number.
type Details struct {
	Type          DetailsType `json:"type"`
	MerchantID    string      `json:"merchantID,omitempty"`
	FromAccount   string      `json:"fromAccount,omitempty"`
	ToAccount     string      `json:"toAccount,omitempty"`
	ReceiptNumber string      `json:"receiptNumber,omitempty"`
}

// Transaction represents a single entry on an account's ledger.
type Transaction struct {
	ID string `json:"id"`

	// The account that the transaction applies to
	AccountID string `json:"accountID"`

	// The date/time that the transaction occurred
	Instant time.Time `json:"instant"`

	// The amount of money involved. Negative amounts are debits,
	// positive amounts are credits.
	Amount Money `json:"amount"`

	// A free-form text description of the transaction
	Description string `json:"description"`

	// The category of the transaction, eg Transfers, Groceries
	Category string `json:"category"`

	// More specific details depending on the type of transaction
	Details Details `json:"details"`

	UpdatedBy string `json:"updatedBy,omitempty"`
}

// Identity returns the transaction's unique key.
func (t Transaction) Identity() string { return t.ID }

// Equal reports whether two transactions are value-equal.
func (t Transaction) Equal(other Transaction) bool {
	return t.ID == other.ID &&
		t.AccountID == other.AccountID &&
		t.Instant.Equal(other.Instant) &&
		t.Amount.Equal(other.Amount) &&
		t.Description == other.Description &&
		t.Category == other.Category &&
		t.Details == other.Details &&
		t.UpdatedBy == other.UpdatedBy
}

// TransferDetails is the receipt returned from a successful transfer
// between two of a user's accounts.
type TransferDetails struct {
	FromAccount   string `json:"fromAccount"`
	ToAccount     string `json:"toAccount"`
	ReceiptNumber string `json:"receiptNumber"`
}
