// Package repository stores country rules in Postgres and serves them to the
// normalizer as a phone.Loader.
package repository

import (
	"context"
	"fmt"

	"phonenorm_backend/platform/phone"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides database operations for country rules.
type Repository struct {
	pool *pgxpool.Pool
}

var _ phone.Loader = (*Repository)(nil)

// New creates a new country rules repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Name identifies the repository as a table source.
func (r *Repository) Name() string { return "postgres" }

// Load returns every stored rule. An empty result is an error so a fresh
// database never replaces a working table with nothing.
func (r *Repository) Load(ctx context.Context) ([]phone.CountryEntry, error) {
	entries, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("country_rules is empty; run country-import first")
	}
	return entries, nil
}

const selectColumns = `calling_code, country_name, territories, international_prefix, trunk_prefix,
		nsn_lengths, prefix_pattern, length_pattern, example_display, number_format_template`

// List returns all rules ordered by calling code.
func (r *Repository) List(ctx context.Context) ([]phone.CountryEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+selectColumns+` FROM country_rules ORDER BY length(calling_code), calling_code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list country rules: %w", err)
	}
	defer rows.Close()

	var entries []phone.CountryEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan country rule: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list country rules: %w", err)
	}
	return entries, nil
}

// Upsert inserts or replaces the rule for entry.CallingCode.
func (r *Repository) Upsert(ctx context.Context, entry phone.CountryEntry) error {
	return upsert(ctx, r.pool, entry)
}

// ReplaceAll swaps the stored table for entries inside one transaction.
func (r *Repository) ReplaceAll(ctx context.Context, entries []phone.CountryEntry) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM country_rules`); err != nil {
			return fmt.Errorf("failed to clear country rules: %w", err)
		}
		for _, entry := range entries {
			if err := upsert(ctx, tx, entry); err != nil {
				return err
			}
		}
		return nil
	})
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func upsert(ctx context.Context, db execer, e phone.CountryEntry) error {
	territories := e.Territories
	if territories == nil {
		territories = []string{}
	}

	_, err := db.Exec(ctx, `
		INSERT INTO country_rules (`+selectColumns+`, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (calling_code) DO UPDATE SET
			country_name = EXCLUDED.country_name,
			territories = EXCLUDED.territories,
			international_prefix = EXCLUDED.international_prefix,
			trunk_prefix = EXCLUDED.trunk_prefix,
			nsn_lengths = EXCLUDED.nsn_lengths,
			prefix_pattern = EXCLUDED.prefix_pattern,
			length_pattern = EXCLUDED.length_pattern,
			example_display = EXCLUDED.example_display,
			number_format_template = EXCLUDED.number_format_template,
			updated_at = now()`,
		e.CallingCode, e.CountryName, territories, e.InternationalPrefix, e.TrunkPrefix,
		toInt32s(e.NationalSignificantNumberLengths), e.PrefixPattern, e.LengthPattern,
		e.ExampleDisplay, e.NumberFormatTemplate,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert country rule %s: %w", e.CallingCode, err)
	}
	return nil
}

func scanEntry(row pgx.Row) (phone.CountryEntry, error) {
	var (
		e       phone.CountryEntry
		lengths []int32
	)
	err := row.Scan(
		&e.CallingCode, &e.CountryName, &e.Territories, &e.InternationalPrefix, &e.TrunkPrefix,
		&lengths, &e.PrefixPattern, &e.LengthPattern, &e.ExampleDisplay, &e.NumberFormatTemplate,
	)
	if err != nil {
		return phone.CountryEntry{}, err
	}
	e.NationalSignificantNumberLengths = fromInt32s(lengths)
	return e, nil
}

func toInt32s(values []int) []int32 {
	out := make([]int32, len(values))
	for i, v := range values {
		out[i] = int32(v)
	}
	return out
}

func fromInt32s(values []int32) []int {
	if len(values) == 0 {
		return nil
	}
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = int(v)
	}
	return out
}
