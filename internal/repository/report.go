package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kaiken/licitaciones/internal/model"
)

// Все отчёты строятся по представлению order_details_with_margin с фильтром по дате создания тендера.
const periodFilter = `($1::date IS NULL OR t.creation_date >= $1::date) AND ($2::date IS NULL OR t.creation_date <= $2::date)`

// ClientProfitability возвращает выручку, маржу и число тендеров по каждому клиенту за период.
func (r *PostgresRepository) ClientProfitability(ctx context.Context, period model.DateRange) ([]model.ClientProfitability, error) {
	var res []model.ClientProfitability
	err := r.withRetry(ctx, func() error {
		rows, err := r.db.Query(ctx,
			`SELECT c.name,
			        SUM(d.sale_price * d.quantity) AS revenue,
			        SUM(d.total_margin) AS total_margin,
			        COUNT(DISTINCT d.tender_id) AS tenders
			 FROM order_details_with_margin d
			 JOIN tenders t ON t.id = d.tender_id
			 JOIN clients c ON c.id = t.client_id
			 WHERE `+periodFilter+`
			 GROUP BY c.name
			 ORDER BY total_margin DESC, c.name`,
			dateArg(period.From), dateArg(period.To),
		)
		if err != nil {
			return err
		}
		res, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ClientProfitability, error) {
			var c model.ClientProfitability
			if err := row.Scan(&c.ClientName, &c.Revenue, &c.TotalMargin, &c.Tenders); err != nil {
				return c, err
			}
			c.AvgMarginPct = model.MarginPct(c.TotalMargin, c.Revenue)
			return c, nil
		})
		return err
	})
	if err != nil {
		return nil, classifyError(fmt.Errorf("client profitability: %w", err))
	}
	return res, nil
}

// TopProducts возвращает товары с наибольшей суммарной маржой за период.
func (r *PostgresRepository) TopProducts(ctx context.Context, period model.DateRange, limit int) ([]model.ProductMargin, error) {
	var res []model.ProductMargin
	err := r.withRetry(ctx, func() error {
		rows, err := r.db.Query(ctx,
			`SELECT d.sku, d.product_name, SUM(d.total_margin) AS total_margin
			 FROM order_details_with_margin d
			 JOIN tenders t ON t.id = d.tender_id
			 WHERE `+periodFilter+`
			 GROUP BY d.sku, d.product_name
			 ORDER BY total_margin DESC, d.product_name
			 LIMIT $3`,
			dateArg(period.From), dateArg(period.To), limit,
		)
		if err != nil {
			return err
		}
		res, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ProductMargin, error) {
			var p model.ProductMargin
			err := row.Scan(&p.SKU, &p.ProductName, &p.TotalMargin)
			return p, err
		})
		return err
	})
	if err != nil {
		return nil, classifyError(fmt.Errorf("top products: %w", err))
	}
	return res, nil
}

// MonthlyTrend возвращает выручку и маржу по календарным месяцам за период.
// Месяцы без тендеров между первым и последним месяцем с данными возвращаются с нулями.
func (r *PostgresRepository) MonthlyTrend(ctx context.Context, period model.DateRange) ([]model.MonthlyTrend, error) {
	var res []model.MonthlyTrend
	err := r.withRetry(ctx, func() error {
		rows, err := r.db.Query(ctx,
			`WITH monthly AS (
			     SELECT date_trunc('month', t.creation_date)::date AS month,
			            SUM(d.sale_price * d.quantity) AS revenue,
			            SUM(d.total_margin) AS margin
			     FROM order_details_with_margin d
			     JOIN tenders t ON t.id = d.tender_id
			     WHERE `+periodFilter+`
			     GROUP BY month
			 ),
			 bounds AS (
			     SELECT MIN(month) AS first_month, MAX(month) AS last_month FROM monthly
			 )
			 SELECT s.month::date,
			        COALESCE(m.revenue, 0),
			        COALESCE(m.margin, 0)
			 FROM bounds b
			 CROSS JOIN LATERAL generate_series(b.first_month::timestamp, b.last_month::timestamp, interval '1 month') AS s(month)
			 LEFT JOIN monthly m ON m.month = s.month::date
			 ORDER BY s.month`,
			dateArg(period.From), dateArg(period.To),
		)
		if err != nil {
			return err
		}
		res, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.MonthlyTrend, error) {
			var m model.MonthlyTrend
			err := row.Scan(&m.Month, &m.Revenue, &m.Margin)
			return m, err
		})
		return err
	})
	if err != nil {
		return nil, classifyError(fmt.Errorf("monthly trend: %w", err))
	}
	return res, nil
}
