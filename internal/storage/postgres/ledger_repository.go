package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/bakery-pos/internal/domain"
)

type ledgerRepository struct {
	db *sql.DB
}

// NewLedgerRepository создаёт PostgreSQL-реализацию LedgerRepository.
// Журнал append-only: записи не обновляются и не удаляются.
func NewLedgerRepository(store *Store) domain.LedgerRepository {
	return &ledgerRepository{db: store.DB()}
}

func (r *ledgerRepository) Record(order domain.Order) error {
	if order.Status != domain.OrderStatusCommitted {
		return domain.ErrLedgerNotCommitted
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_orders (
			id, customer_name, subtotal, tax_rate, tax_amount,
			discount_amount, total, created_at, committed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		order.ID, order.CustomerName, order.Subtotal, order.TaxRate,
		order.TaxAmount, order.DiscountAmount, order.Total,
		order.CreatedAt, order.CommittedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrLedgerDuplicate
		}
		return fmt.Errorf("insert ledger order: %w", err)
	}

	for i, line := range order.Lines {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO ledger_lines (
				order_id, position, product_id, name, unit_price, quantity, line_total
			) VALUES ($1,$2,$3,$4,$5,$6,$7)
		`,
			order.ID, i, line.ProductID, line.Name,
			line.UnitPrice, line.Quantity, line.LineTotal,
		); err != nil {
			return fmt.Errorf("insert ledger line: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger record: %w", err)
	}
	return nil
}

func (r *ledgerRepository) List() ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, customer_name, subtotal, tax_rate, tax_amount,
		       discount_amount, total, created_at, committed_at
		FROM ledger_orders
		ORDER BY committed_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list ledger orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(
			&order.ID, &order.CustomerName, &order.Subtotal, &order.TaxRate,
			&order.TaxAmount, &order.DiscountAmount, &order.Total,
			&order.CreatedAt, &order.CommittedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ledger order: %w", err)
		}
		order.Status = domain.OrderStatusCommitted

		lines, err := r.loadLines(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order.Lines = lines
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger orders: %w", err)
	}
	return orders, nil
}

func (r *ledgerRepository) loadLines(ctx context.Context, orderID int64) ([]domain.OrderLine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, name, unit_price, quantity, line_total
		FROM ledger_lines
		WHERE order_id = $1
		ORDER BY position
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load ledger lines: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.OrderLine, 0)
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.ProductID, &line.Name, &line.UnitPrice, &line.Quantity, &line.LineTotal); err != nil {
			return nil, fmt.Errorf("scan ledger line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger lines: %w", err)
	}
	return lines, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.LedgerRepository = (*ledgerRepository)(nil)
