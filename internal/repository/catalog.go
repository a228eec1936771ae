package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kaiken/licitaciones/internal/model"
)

// CreateClient создаёт клиента и возвращает его идентификатор.
func (r *PostgresRepository) CreateClient(ctx context.Context, name, rut string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO clients (name, rut) VALUES ($1, $2) RETURNING id`,
		name, rut,
	).Scan(&id)
	if err != nil {
		return 0, classifyError(fmt.Errorf("create client %s: %w", rut, err))
	}
	return id, nil
}

// UpdateClientName меняет имя клиента. RUT после создания не изменяется.
func (r *PostgresRepository) UpdateClientName(ctx context.Context, id int64, name string) error {
	cmdTag, err := r.db.Exec(ctx, `UPDATE clients SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return classifyError(fmt.Errorf("update client: %w", err))
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", ErrClientNotFound, id)
	}
	return nil
}

// GetClient возвращает клиента по идентификатору.
func (r *PostgresRepository) GetClient(ctx context.Context, id int64) (*model.Client, error) {
	var c model.Client
	err := r.withRetry(ctx, func() error {
		return r.db.QueryRow(ctx,
			`SELECT id, name, rut FROM clients WHERE id = $1`,
			id,
		).Scan(&c.ID, &c.Name, &c.RUT)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrClientNotFound, id)
		}
		return nil, classifyError(fmt.Errorf("get client: %w", err))
	}
	return &c, nil
}

// ListClients возвращает клиентов, упорядоченных по имени.
func (r *PostgresRepository) ListClients(ctx context.Context) ([]model.Client, error) {
	var res []model.Client
	err := r.withRetry(ctx, func() error {
		rows, err := r.db.Query(ctx, `SELECT id, name, rut FROM clients ORDER BY name, id`)
		if err != nil {
			return err
		}
		res, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Client, error) {
			var c model.Client
			err := row.Scan(&c.ID, &c.Name, &c.RUT)
			return c, err
		})
		return err
	})
	if err != nil {
		return nil, classifyError(fmt.Errorf("list clients: %w", err))
	}
	return res, nil
}

// CreateProduct добавляет товар в каталог.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p model.Product) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO products (sku, name, cost) VALUES ($1, $2, $3)`,
		p.SKU, p.Name, p.Cost,
	)
	if err != nil {
		return classifyError(fmt.Errorf("create product %s: %w", p.SKU, err))
	}
	return nil
}

// UpdateProduct меняет имя и себестоимость товара.
// Себестоимость нельзя поднять до цены продажи уже сохранённых позиций.
func (r *PostgresRepository) UpdateProduct(ctx context.Context, p model.Product) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return classifyError(fmt.Errorf("begin tx: %w", err))
	}
	defer rollback(ctx, tx)

	var sku string
	err = tx.QueryRow(ctx, `SELECT sku FROM products WHERE sku = $1 FOR UPDATE`, p.SKU).Scan(&sku)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrProductNotFound, p.SKU)
		}
		return classifyError(fmt.Errorf("lock product %s: %w", p.SKU, err))
	}

	var underpriced int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM order_lines WHERE sku = $1 AND price <= $2`,
		p.SKU, p.Cost,
	).Scan(&underpriced)
	if err != nil {
		return classifyError(fmt.Errorf("check order lines of %s: %w", p.SKU, err))
	}
	if underpriced > 0 {
		return fmt.Errorf("%w: %d order lines of %s priced at or below %s", ErrMarginViolation, underpriced, p.SKU, p.Cost)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE products SET name = $2, cost = $3 WHERE sku = $1`,
		p.SKU, p.Name, p.Cost,
	); err != nil {
		return classifyError(fmt.Errorf("update product %s: %w", p.SKU, err))
	}

	if err := tx.Commit(ctx); err != nil {
		return classifyError(fmt.Errorf("commit tx: %w", err))
	}

	return nil
}

// GetProduct возвращает товар по SKU.
func (r *PostgresRepository) GetProduct(ctx context.Context, sku string) (*model.Product, error) {
	var p model.Product
	err := r.withRetry(ctx, func() error {
		return r.db.QueryRow(ctx,
			`SELECT sku, name, cost FROM products WHERE sku = $1`,
			sku,
		).Scan(&p.SKU, &p.Name, &p.Cost)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, sku)
		}
		return nil, classifyError(fmt.Errorf("get product: %w", err))
	}
	return &p, nil
}

// ListProducts возвращает каталог товаров, упорядоченный по имени.
func (r *PostgresRepository) ListProducts(ctx context.Context) ([]model.Product, error) {
	return r.queryProducts(ctx, `SELECT sku, name, cost FROM products ORDER BY name, sku`)
}

// GetProductsBySKU возвращает товары с указанными SKU, отсутствующие пропускаются.
func (r *PostgresRepository) GetProductsBySKU(ctx context.Context, skus []string) (map[string]model.Product, error) {
	products, err := r.queryProducts(ctx, `SELECT sku, name, cost FROM products WHERE sku = ANY($1)`, skus)
	if err != nil {
		return nil, err
	}

	res := make(map[string]model.Product, len(products))
	for _, p := range products {
		res[p.SKU] = p
	}
	return res, nil
}

func (r *PostgresRepository) queryProducts(ctx context.Context, sql string, args ...any) ([]model.Product, error) {
	var res []model.Product
	err := r.withRetry(ctx, func() error {
		rows, err := r.db.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		res, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Product, error) {
			var p model.Product
			err := row.Scan(&p.SKU, &p.Name, &p.Cost)
			return p, err
		})
		return err
	})
	if err != nil {
		return nil, classifyError(fmt.Errorf("select products: %w", err))
	}
	return res, nil
}
