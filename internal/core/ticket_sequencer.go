package core

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TicketSequencer interface {
	// NextTicket issues a ticket number in its own transaction. Use for standalone calls.
	NextTicket(ctx context.Context, companyCode string, year int) (string, error)
	// NextTicketTx issues a ticket number using an existing transaction, so that
	// the counter increment rolls back together with the record it numbers.
	NextTicketTx(ctx context.Context, tx pgx.Tx, companyCode string, year int) (string, error)
}

type ticketSequencer struct {
	pool *pgxpool.Pool
}

func NewTicketSequencer(pool *pgxpool.Pool) TicketSequencer {
	return &ticketSequencer{pool: pool}
}

func (s *ticketSequencer) NextTicket(ctx context.Context, companyCode string, year int) (string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ticket, err := s.NextTicketTx(ctx, tx, companyCode, year)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		if isContention(err) {
			return "", fmt.Errorf("%w: %s/%d: %v", ErrTicketContention, companyCode, year, err)
		}
		return "", fmt.Errorf("failed to commit ticket: %w", err)
	}
	return ticket, nil
}

func (s *ticketSequencer) NextTicketTx(ctx context.Context, tx pgx.Tx, companyCode string, year int) (string, error) {
	n, err := nextCounterValue(ctx, tx, companyCode, year)
	if err != nil {
		return "", err
	}
	ticket := FormatTicket(companyCode, year, n)
	log.Printf("[TICKET] %s issued (%s/%d #%d)", ticket, companyCode, year, n)
	return ticket, nil
}

// nextCounterValue performs the read-or-create-and-increment as one statement.
// The conflicting row is locked by the upsert, so concurrent callers on the
// same (company, year) serialize on it and each observe a distinct value.
func nextCounterValue(ctx context.Context, tx pgx.Tx, companyCode string, year int) (int64, error) {
	if companyCode == "" {
		return 0, fmt.Errorf("%w: company code is required for ticket numbering", ErrConfiguration)
	}
	if year < 2000 || year > 9999 {
		return 0, fmt.Errorf("%w: ticket year %d out of range", ErrValidation, year)
	}

	var lastNumber int64
	err := tx.QueryRow(ctx, `
		INSERT INTO ticket_counters (company_code, year, last_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (company_code, year)
		DO UPDATE SET last_number = ticket_counters.last_number + 1,
		              updated_at  = NOW()
		RETURNING last_number
	`, companyCode, year).Scan(&lastNumber)
	if err != nil {
		if isContention(err) {
			return 0, fmt.Errorf("%w: %s/%d: %v", ErrTicketContention, companyCode, year, err)
		}
		return 0, fmt.Errorf("failed to increment ticket counter: %w", err)
	}
	return lastNumber, nil
}

// FormatTicket renders {companyCode}-{YY}{n zero-padded to 5}, e.g. PKS001-2400157.
func FormatTicket(companyCode string, year int, n int64) string {
	return fmt.Sprintf("%s-%02d%05d", companyCode, year%100, n)
}
