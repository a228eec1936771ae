package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/kaiken/licitaciones/internal/model"
)

const (
	insertTenderSQL = `INSERT INTO tenders (id, client_id, creation_date, delivery_date) VALUES ($1, $2, $3, $4)`

	updateTenderSQL = `UPDATE tenders SET client_id = $2, creation_date = $3, delivery_date = $4 WHERE id = $1`

	deleteOrderLinesSQL = `DELETE FROM order_lines WHERE tender_id = $1`

	lockProductCostSQL = `SELECT cost FROM products WHERE sku = $1 FOR SHARE`

	insertOrderLineSQL = `INSERT INTO order_lines (id, tender_id, sku, quantity, price) VALUES ($1, $2, $3, $4, $5)`
)

// SaveTender сохраняет тендер и полный набор его позиций в одной транзакции.
// В режиме обновления существующие позиции удаляются и вставляются заново.
// При любой ошибке транзакция откатывается, частичное состояние не фиксируется.
func (r *PostgresRepository) SaveTender(ctx context.Context, mode model.SaveMode, t model.Tender) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return classifyError(fmt.Errorf("begin tx: %w", err))
	}
	defer rollback(ctx, tx)

	switch mode {
	case model.SaveModeCreate:
		if _, err := tx.Exec(ctx, insertTenderSQL, t.ID, t.ClientID, t.CreationDate, t.DeliveryDate); err != nil {
			return classifyError(fmt.Errorf("insert tender %s: %w", t.ID, err))
		}
	case model.SaveModeUpdate:
		cmdTag, err := tx.Exec(ctx, updateTenderSQL, t.ID, t.ClientID, t.CreationDate, t.DeliveryDate)
		if err != nil {
			return classifyError(fmt.Errorf("update tender %s: %w", t.ID, err))
		}
		if cmdTag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", ErrTenderNotFound, t.ID)
		}
		if _, err := tx.Exec(ctx, deleteOrderLinesSQL, t.ID); err != nil {
			return classifyError(fmt.Errorf("delete order lines of %s: %w", t.ID, err))
		}
	default:
		return fmt.Errorf("unsupported save mode %d", mode)
	}

	for _, line := range t.Lines {
		if err := insertOrderLine(ctx, tx, t.ID, line); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return classifyError(fmt.Errorf("commit tx: %w", err))
	}

	return nil
}

func insertOrderLine(ctx context.Context, tx pgx.Tx, tenderID string, line model.OrderLine) error {
	// Блокировка строки товара не даёт поднять себестоимость до фиксации позиции.
	var cost decimal.Decimal
	err := tx.QueryRow(ctx, lockProductCostSQL, line.SKU).Scan(&cost)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: product %s", ErrInvalidReference, line.SKU)
		}
		return classifyError(fmt.Errorf("lock product %s: %w", line.SKU, err))
	}

	if line.Price.LessThanOrEqual(cost) {
		return fmt.Errorf("%w: %s price %s, cost %s", ErrMarginViolation, line.SKU, line.Price, cost)
	}

	_, err = tx.Exec(ctx, insertOrderLineSQL,
		model.OrderLineID(tenderID, line.SKU), tenderID, line.SKU, line.Quantity, line.Price,
	)
	if err != nil {
		return classifyError(fmt.Errorf("insert order line %s: %w", model.OrderLineID(tenderID, line.SKU), err))
	}

	return nil
}

// GetTender возвращает тендер вместе с позициями.
func (r *PostgresRepository) GetTender(ctx context.Context, id string) (*model.Tender, error) {
	var t model.Tender

	err := r.withRetry(ctx, func() error {
		err := r.db.QueryRow(ctx,
			`SELECT id, client_id, creation_date, delivery_date FROM tenders WHERE id = $1`,
			id,
		).Scan(&t.ID, &t.ClientID, &t.CreationDate, &t.DeliveryDate)
		if err != nil {
			return err
		}

		rows, err := r.db.Query(ctx,
			`SELECT sku, quantity, price FROM order_lines WHERE tender_id = $1 ORDER BY sku`,
			id,
		)
		if err != nil {
			return err
		}

		t.Lines, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.OrderLine, error) {
			var l model.OrderLine
			err := row.Scan(&l.SKU, &l.Quantity, &l.Price)
			return l, err
		})
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrTenderNotFound, id)
		}
		return nil, classifyError(fmt.Errorf("get tender: %w", err))
	}

	return &t, nil
}

// SearchTenders ищет тендеры по подстроке идентификатора или имени клиента.
// Пустой запрос возвращает все тендеры, от новых к старым.
func (r *PostgresRepository) SearchTenders(ctx context.Context, query string) ([]model.TenderSummary, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(query)) + "%"

	var res []model.TenderSummary
	err := r.withRetry(ctx, func() error {
		rows, err := r.db.Query(ctx,
			`SELECT t.id, t.client_id, c.name, c.rut, t.creation_date, t.delivery_date
			 FROM tenders t
			 JOIN clients c ON c.id = t.client_id
			 WHERE t.id ILIKE $1 OR c.name ILIKE $1
			 ORDER BY t.creation_date DESC, t.id`,
			pattern,
		)
		if err != nil {
			return err
		}

		res, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.TenderSummary, error) {
			return scanTenderSummary(row)
		})
		return err
	})
	if err != nil {
		return nil, classifyError(fmt.Errorf("search tenders: %w", err))
	}

	return res, nil
}

// GetTenderDetail возвращает тендер с позициями, себестоимостью и итоговой маржой.
func (r *PostgresRepository) GetTenderDetail(ctx context.Context, id string) (*model.TenderDetail, error) {
	var d model.TenderDetail

	err := r.withRetry(ctx, func() error {
		row := r.db.QueryRow(ctx,
			`SELECT t.id, t.client_id, c.name, c.rut, t.creation_date, t.delivery_date
			 FROM tenders t
			 JOIN clients c ON c.id = t.client_id
			 WHERE t.id = $1`,
			id,
		)
		summary, err := scanTenderSummary(row)
		if err != nil {
			return err
		}
		d.TenderSummary = summary

		rows, err := r.db.Query(ctx,
			`SELECT sku, product_name, quantity, sale_price, cost_price, total_margin
			 FROM order_details_with_margin
			 WHERE tender_id = $1
			 ORDER BY product_name`,
			id,
		)
		if err != nil {
			return err
		}

		d.Lines, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.LineDetail, error) {
			var l model.LineDetail
			err := row.Scan(&l.SKU, &l.ProductName, &l.Quantity, &l.Price, &l.Cost, &l.Margin)
			return l, err
		})
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrTenderNotFound, id)
		}
		return nil, classifyError(fmt.Errorf("get tender detail: %w", err))
	}

	d.Revenue, d.Cost, d.Margin = decimal.Zero, decimal.Zero, decimal.Zero
	for _, l := range d.Lines {
		qty := decimal.NewFromInt(int64(l.Quantity))
		d.Revenue = d.Revenue.Add(l.Price.Mul(qty))
		d.Cost = d.Cost.Add(l.Cost.Mul(qty))
		d.Margin = d.Margin.Add(l.Margin)
	}
	d.MarginPct = model.MarginPct(d.Margin, d.Revenue)

	return &d, nil
}

func scanTenderSummary(row pgx.Row) (model.TenderSummary, error) {
	var s model.TenderSummary
	err := row.Scan(&s.ID, &s.ClientID, &s.ClientName, &s.ClientRUT, &s.CreationDate, &s.DeliveryDate)
	return s, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
