package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/Volodya262/jb-products-info/model"
)

// UpdateLocalProducts upserts the reconciled products with their alternative
// codes and records a "checked at now" history entry per product. Runs every
// refresh cycle regardless of whether any build changed.
func (d Datasource) UpdateLocalProducts(ctx context.Context, products []model.Product) error {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	for _, p := range products {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO product (code, name)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, p.ProductCode, p.ProductName)
		if err != nil {
			return errors.Wrapf(err, "failed to upsert product %s", p.ProductCode)
		}

		for _, alternativeCode := range p.AlternativeCodes {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO product_alternative_code (alternative_code, primary_code)
				VALUES ($1, $2)
				ON CONFLICT DO NOTHING
			`, alternativeCode, p.ProductCode)
			if err != nil {
				return errors.Wrapf(err, "failed to upsert alternative code %s of product %s", alternativeCode, p.ProductCode)
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO product_update_history (product_code, check_date)
			VALUES ($1, $2)
		`, p.ProductCode, now)
		if err != nil {
			return errors.Wrapf(err, "failed to insert update history of product %s", p.ProductCode)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit products update")
	}
	return nil
}

// GetProducts lists all known products with their alternative codes and the
// timestamp of the most recent reconciliation check.
func (d Datasource) GetProducts(ctx context.Context) ([]model.LocalProduct, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		WITH product_last_update AS (
			SELECT product_code, MAX(check_date) AS last_update
			FROM product_update_history
			GROUP BY product_code
		)
		SELECT p.code, p.name, plu.last_update
		FROM product p
		JOIN product_last_update plu ON p.code = plu.product_code
	`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query products")
	}
	defer rows.Close()

	var products []model.LocalProduct
	for rows.Next() {
		var p model.LocalProduct
		if err := rows.Scan(&p.ProductCode, &p.ProductName, &p.LastUpdate); err != nil {
			return nil, errors.Wrap(err, "failed to scan product row")
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate product rows")
	}

	altRows, err := d.Conn.QueryContext(ctx, `
		SELECT alternative_code, primary_code
		FROM product_alternative_code
	`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query alternative codes")
	}
	defer altRows.Close()

	alternatives := make(map[model.ProductCode][]model.ProductCode)
	for altRows.Next() {
		var alternativeCode, primaryCode string
		if err := altRows.Scan(&alternativeCode, &primaryCode); err != nil {
			return nil, errors.Wrap(err, "failed to scan alternative code row")
		}
		alternatives[primaryCode] = append(alternatives[primaryCode], alternativeCode)
	}
	if err := altRows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate alternative code rows")
	}

	for i := range products {
		products[i].AlternativeCodes = alternatives[products[i].ProductCode]
	}
	return products, nil
}

// ResolveProductCode maps an alternative code to its canonical product code.
// A canonical code resolves to itself; an unknown code is returned unchanged
// so queries by a not-yet-synced code still read an empty result rather than
// failing.
func (d Datasource) ResolveProductCode(ctx context.Context, code model.ProductCode) (model.ProductCode, error) {
	var primary string
	err := d.Conn.QueryRowContext(ctx, `
		SELECT primary_code
		FROM product_alternative_code
		WHERE alternative_code = $1
	`, code).Scan(&primary)
	if err == sql.ErrNoRows {
		return code, nil
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve product code %s", code)
	}
	return primary, nil
}

// DeleteAllProducts wipes all product state. Full reset only, used by tests.
func (d Datasource) DeleteAllProducts(ctx context.Context) error {
	for _, table := range []string{"product_update_history", "product_alternative_code", "product"} {
		if _, err := d.Conn.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return errors.Wrapf(err, "failed to delete from %s", table)
		}
	}
	return nil
}
