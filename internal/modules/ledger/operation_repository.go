package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// OperationRepository handles the append-only operation log. Rows are never
// updated or deleted here; the only way an operation disappears is the
// portfolio cascade.
type OperationRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewOperationRepository creates a new operation repository
func NewOperationRepository(db *sql.DB, log zerolog.Logger) *OperationRepository {
	return &OperationRepository{
		db:  db,
		log: log.With().Str("repo", "operation").Logger(),
	}
}

// AppendTx inserts an operation inside a ledger transaction.
func (r *OperationRepository) AppendTx(tx *sql.Tx, op Operation) error {
	_, err := tx.Exec(`
		INSERT INTO operations (id, portfolio_id, currency_id, type, amount, price, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		op.ID,
		op.PortfolioID,
		op.CurrencyID,
		string(op.Type),
		op.Amount.String(),
		op.Price.String(),
		op.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to append operation: %w", err)
	}
	return nil
}

// ListByPortfolio returns a portfolio's operations in append order.
func (r *OperationRepository) ListByPortfolio(portfolioID string) ([]Operation, error) {
	rows, err := r.db.Query(`
		SELECT id, portfolio_id, currency_id, type, amount, price, created_at
		FROM operations
		WHERE portfolio_id = ?
		ORDER BY created_at, rowid
	`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query operations: %w", err)
	}
	defer rows.Close()

	var operations []Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		operations = append(operations, op)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating operations: %w", err)
	}

	return operations, nil
}

// CountByPortfolio returns the number of operations recorded for a portfolio.
func (r *OperationRepository) CountByPortfolio(portfolioID string) (int, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM operations WHERE portfolio_id = ?", portfolioID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count operations: %w", err)
	}
	return count, nil
}

func scanOperation(rows *sql.Rows) (Operation, error) {
	var op Operation
	var opType, amount, price string
	var createdAt int64

	if err := rows.Scan(&op.ID, &op.PortfolioID, &op.CurrencyID, &opType, &amount, &price, &createdAt); err != nil {
		return op, fmt.Errorf("failed to scan operation: %w", err)
	}

	op.Type = OperationType(opType)

	var err error
	op.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return op, fmt.Errorf("failed to parse operation amount %q: %w", amount, err)
	}
	op.Price, err = decimal.NewFromString(price)
	if err != nil {
		return op, fmt.Errorf("failed to parse operation price %q: %w", price, err)
	}
	op.Total = op.Amount.Mul(op.Price)
	op.CreatedAt = time.Unix(createdAt, 0)

	return op, nil
}
