package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/bokbank/server/internal/domain"
)

// TableMerchants is the merchants table name, usable as an observation
// dependency.
const TableMerchants = "merchant"

const merchantColumns = `id, name, address, latitude, longitude, logo_url, updated_by`

func scanMerchant(row rowScanner) (domain.Merchant, error) {
	var (
		merchant  domain.Merchant
		address   sql.NullString
		latitude  sql.NullFloat64
		longitude sql.NullFloat64
		updatedBy sql.NullString
	)
	err := row.Scan(
		&merchant.ID,
		&merchant.Name,
		&address,
		&latitude,
		&longitude,
		&merchant.LogoURL,
		&updatedBy,
	)
	if err != nil {
		return domain.Merchant{}, err
	}
	if address.Valid {
		merchant.Address = &address.String
	}
	if latitude.Valid && longitude.Valid {
		merchant.Location = &domain.Location{Latitude: latitude.Float64, Longitude: longitude.Float64}
	}
	merchant.UpdatedBy = updatedBy.String
	return merchant, nil
}

// Merchants returns every merchant in the partition, ordered by id.
func Merchants(ctx context.Context, tx *Tx) ([]domain.Merchant, error) {
	rows, err := tx.Query(ctx, `SELECT `+merchantColumns+` FROM merchant ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: list merchants: %w", err)
	}
	defer rows.Close()

	var merchants []domain.Merchant
	for rows.Next() {
		merchant, err := scanMerchant(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan merchant: %w", err)
		}
		merchants = append(merchants, merchant)
	}
	return merchants, rows.Err()
}

// MerchantByID returns the merchant with the given id, or nil if it
// doesn't exist.
func MerchantByID(ctx context.Context, tx *Tx, id string) (*domain.Merchant, error) {
	row := tx.QueryRow(ctx, `SELECT `+merchantColumns+` FROM merchant WHERE id = ?`, id)
	merchant, err := scanMerchant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get merchant: %w", err)
	}
	return &merchant, nil
}

// SaveMerchant inserts or replaces a merchant row.
func SaveMerchant(ctx context.Context, tx *Tx, merchant domain.Merchant) error {
	tx.touch(TableMerchants)

	var address sql.NullString
	if merchant.Address != nil {
		address = sql.NullString{String: *merchant.Address, Valid: true}
	}
	var latitude, longitude sql.NullFloat64
	if merchant.Location != nil {
		latitude = sql.NullFloat64{Float64: merchant.Location.Latitude, Valid: true}
		longitude = sql.NullFloat64{Float64: merchant.Location.Longitude, Valid: true}
	}

	_, err := tx.Exec(ctx, `
		INSERT OR REPLACE INTO merchant (`+merchantColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		merchant.ID,
		merchant.Name,
		address,
		latitude,
		longitude,
		merchant.LogoURL,
		nullable(merchant.UpdatedBy),
	)
	if err != nil {
		return fmt.Errorf("store: save merchant: %w", err)
	}
	return nil
}

// Merchants returns every merchant in the partition as a one-shot read.
func (s *Store) Merchants(ctx context.Context) ([]domain.Merchant, error) {
	var merchants []domain.Merchant
	err := s.Read(ctx, func(ctx context.Context, tx *Tx) error {
		var err error
		merchants, err = Merchants(ctx, tx)
		return err
	})
	return merchants, err
}

// Merchant returns the merchant with the given id, or nil if absent.
func (s *Store) Merchant(ctx context.Context, id string) (*domain.Merchant, error) {
	var merchant *domain.Merchant
	err := s.Read(ctx, func(ctx context.Context, tx *Tx) error {
		var err error
		merchant, err = MerchantByID(ctx, tx, id)
		return err
	})
	return merchant, err
}

// ObserveMerchants returns a live sequence of the partition's merchants,
// re-emitted whenever a commit changes them.
func (s *Store) ObserveMerchants(ctx context.Context) *Observation[[]domain.Merchant] {
	return Observe(ctx, s, []string{TableMerchants}, merchantsEqual, Merchants)
}

func merchantsEqual(a, b []domain.Merchant) bool {
	return slices.EqualFunc(a, b, domain.Merchant.Equal)
}
