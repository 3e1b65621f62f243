package core

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// GradingEngine validates composition samples and binds at most one grading
// to each weighing transaction.
type GradingEngine interface {
	// Attach grades transactionID. Fails with ErrConflict when it already has a grading.
	Attach(ctx context.Context, company CompanyContext, transactionID int, in GradingInput) (*Grading, error)
	// Update merges patch into the stored composition; the merged result must validate.
	Update(ctx context.Context, id int, patch GradingPatch) (*Grading, error)
	// Remove deletes the grading, freeing the transaction's slot.
	Remove(ctx context.Context, id int) error
	Get(ctx context.Context, id int) (*Grading, error)
	GetByTransaction(ctx context.Context, transactionID int) (*Grading, error)
}

const constraintGradingTransaction = "uq_gradings_transaction"

const gradingColumns = `
	id, transaction_id, company_code, total_sample,
	ripe_pct, unripe_pct, rotten_pct, loose_fruit_pct, trash_pct, water_pct,
	grade_letter, note, created_by, created_at, updated_at`

type gradingEngine struct {
	pool      *pgxpool.Pool
	tolerance decimal.Decimal
}

// NewGradingEngine constructs a GradingEngine. tolerance is used as given;
// zero demands an exact sum of 100.
func NewGradingEngine(pool *pgxpool.Pool, tolerance decimal.Decimal) GradingEngine {
	return &gradingEngine{pool: pool, tolerance: tolerance.Abs()}
}

func (g *gradingEngine) Attach(ctx context.Context, company CompanyContext, transactionID int, in GradingInput) (*Grading, error) {
	if err := validateTotalSample(in.TotalSample); err != nil {
		return nil, err
	}
	if err := ValidateComposition(in.Composition, g.tolerance); err != nil {
		return nil, err
	}
	if company.Code == "" {
		return nil, fmt.Errorf("%w: no active company resolved for grading", ErrConfiguration)
	}
	grade := Classify(in.Composition)

	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Share-lock the weighing so it cannot be cancelled while the grading lands.
	var status string
	err = tx.QueryRow(ctx,
		"SELECT status FROM weighing_transactions WHERE id = $1 FOR SHARE", transactionID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: transaction %d", ErrNotFound, transactionID)
		}
		return nil, fmt.Errorf("failed to fetch transaction %d: %w", transactionID, err)
	}
	if TransactionStatus(status) == StatusCancelled {
		return nil, fmt.Errorf("%w: transaction %d is cancelled", ErrInvalidState, transactionID)
	}

	var exists bool
	if err := tx.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM gradings WHERE transaction_id = $1)", transactionID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check existing grading: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: transaction %d is already graded", ErrConflict, transactionID)
	}

	c := in.Composition
	row := tx.QueryRow(ctx, `
		INSERT INTO gradings (
			transaction_id, company_code, total_sample,
			ripe_pct, unripe_pct, rotten_pct, loose_fruit_pct, trash_pct, water_pct,
			grade_letter, note, created_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+gradingColumns,
		transactionID, company.Code, in.TotalSample,
		c.Ripe, c.Unripe, c.Rotten, c.LooseFruit, c.Trash, c.Water,
		string(grade), in.Note, in.CreatedBy,
	)
	gr, err := scanGrading(row)
	if err != nil {
		// Two operators grading the same ticket at once: the unique index decides.
		if isUniqueViolation(err) && constraintName(err) == constraintGradingTransaction {
			return nil, fmt.Errorf("%w: transaction %d is already graded", ErrConflict, transactionID)
		}
		return nil, fmt.Errorf("failed to insert grading: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit grading: %w", err)
	}

	log.Printf("[GRADE] transaction=%d ripe=%s grade=%s", transactionID, c.Ripe.StringFixed(2), grade)
	return gr, nil
}

func (g *gradingEngine) Update(ctx context.Context, id int, patch GradingPatch) (*Grading, error) {
	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanGrading(tx.QueryRow(ctx,
		"SELECT "+gradingColumns+" FROM gradings WHERE id = $1 FOR UPDATE", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: grading %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to lock grading %d: %w", id, err)
	}

	merged := current.Composition.Merge(patch.Composition)
	if err := ValidateComposition(merged, g.tolerance); err != nil {
		return nil, err
	}
	total := current.TotalSample
	if patch.TotalSample != nil {
		total = *patch.TotalSample
	}
	if err := validateTotalSample(total); err != nil {
		return nil, err
	}
	note := current.Note
	if patch.Note != nil {
		note = *patch.Note
	}
	grade := Classify(merged)

	row := tx.QueryRow(ctx, `
		UPDATE gradings
		SET total_sample = $1, ripe_pct = $2, unripe_pct = $3, rotten_pct = $4,
		    loose_fruit_pct = $5, trash_pct = $6, water_pct = $7,
		    grade_letter = $8, note = $9, updated_at = NOW()
		WHERE id = $10
		RETURNING `+gradingColumns,
		total, merged.Ripe, merged.Unripe, merged.Rotten,
		merged.LooseFruit, merged.Trash, merged.Water,
		string(grade), note, id,
	)
	gr, err := scanGrading(row)
	if err != nil {
		return nil, fmt.Errorf("failed to update grading %d: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit grading update: %w", err)
	}
	if gr.GradeLetter != current.GradeLetter {
		log.Printf("[GRADE] grading=%d regraded %s -> %s", id, current.GradeLetter, gr.GradeLetter)
	}
	return gr, nil
}

func (g *gradingEngine) Remove(ctx context.Context, id int) error {
	tag, err := g.pool.Exec(ctx, "DELETE FROM gradings WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete grading %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: grading %d", ErrNotFound, id)
	}
	log.Printf("[GRADE] grading=%d removed", id)
	return nil
}

func (g *gradingEngine) Get(ctx context.Context, id int) (*Grading, error) {
	gr, err := scanGrading(g.pool.QueryRow(ctx,
		"SELECT "+gradingColumns+" FROM gradings WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: grading %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to fetch grading %d: %w", id, err)
	}
	return gr, nil
}

func (g *gradingEngine) GetByTransaction(ctx context.Context, transactionID int) (*Grading, error) {
	gr, err := scanGrading(g.pool.QueryRow(ctx,
		"SELECT "+gradingColumns+" FROM gradings WHERE transaction_id = $1", transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: grading for transaction %d", ErrNotFound, transactionID)
		}
		return nil, fmt.Errorf("failed to fetch grading for transaction %d: %w", transactionID, err)
	}
	return gr, nil
}

func scanGrading(row rowScanner) (*Grading, error) {
	var gr Grading
	var grade string
	c := &gr.Composition
	err := row.Scan(
		&gr.ID, &gr.TransactionID, &gr.CompanyCode, &gr.TotalSample,
		&c.Ripe, &c.Unripe, &c.Rotten, &c.LooseFruit, &c.Trash, &c.Water,
		&grade, &gr.Note, &gr.CreatedBy, &gr.CreatedAt, &gr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	gr.GradeLetter = Grade(grade)
	return &gr, nil
}
