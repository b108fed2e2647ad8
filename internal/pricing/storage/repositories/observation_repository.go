package repositories

import (
	"context"
	"database/sql"
	"fmt"

	feedmodels "gosupermarket_api/internal/feed/models"
	"gosupermarket_api/internal/pricing/models"
)

type ObservationRepository struct {
	db *sql.DB
}

func NewObservationRepository(db *sql.DB) *ObservationRepository {
	return &ObservationRepository{db: db}
}

// Upsert writes one observation. Re-applying the same
// (product, branch, price_type, collected_at) merges fields: incoming
// non-null values overwrite, incoming nulls never clobber existing values.
func (r *ObservationRepository) Upsert(ctx context.Context, o models.PriceObservation) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`
		INSERT INTO prices.price_observations
		  (product_id, branch_id, price_type, price, promo_price, promo_text, in_stock, collected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (product_id, branch_id, price_type, collected_at)
		DO UPDATE SET
		  price       = EXCLUDED.price,
		  promo_price = COALESCE(EXCLUDED.promo_price, prices.price_observations.promo_price),
		  promo_text  = COALESCE(EXCLUDED.promo_text, prices.price_observations.promo_text),
		  in_stock    = COALESCE(EXCLUDED.in_stock, prices.price_observations.in_stock),
		  updated_at  = NOW();
		`,
		o.ProductID, o.BranchID, string(o.PriceType), o.Price, o.PromoPrice, o.PromoText, o.InStock, o.CollectedAt.UTC())
	if err != nil {
		return false, &feedmodels.TransientIOError{Op: "observation upsert", Err: err}
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// AttachPromotion updates promo fields on the most recent regular-price row
// of the product in the branch. The promotion rides the latest snapshot; it
// is not a standalone row.
func (r *ObservationRepository) AttachPromotion(ctx context.Context, u models.PromotionUpdate) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if u.Barcode != "" {
		res, err = r.db.ExecContext(ctx,
			`
			UPDATE prices.price_observations po SET
			  promo_price = COALESCE($1, po.promo_price),
			  promo_text  = COALESCE(NULLIF($2, ''), po.promo_text),
			  updated_at  = NOW()
			FROM prices.products p
			WHERE p.product_id = po.product_id
			  AND p.supermarket_id = $3
			  AND p.barcode = $4
			  AND po.branch_id = $3
			  AND po.price_type = 'regular'
			  AND po.collected_at = (
			    SELECT MAX(collected_at) FROM prices.price_observations
			    WHERE product_id = po.product_id AND branch_id = po.branch_id AND price_type = 'regular'
			  );
			`, u.PromoPrice, u.PromoText, u.SupermarketID, u.Barcode)
	} else {
		res, err = r.db.ExecContext(ctx,
			`
			UPDATE prices.price_observations po SET
			  promo_price = COALESCE($1, po.promo_price),
			  promo_text  = COALESCE(NULLIF($2, ''), po.promo_text),
			  updated_at  = NOW()
			FROM prices.products p
			WHERE p.product_id = po.product_id
			  AND p.supermarket_id = $3
			  AND p.canonical_name = $4
			  AND po.branch_id = $3
			  AND po.price_type = 'regular'
			  AND po.collected_at = (
			    SELECT MAX(collected_at) FROM prices.price_observations
			    WHERE product_id = po.product_id AND branch_id = po.branch_id AND price_type = 'regular'
			  );
			`, u.PromoPrice, u.PromoText, u.SupermarketID, u.Name)
	}
	if err != nil {
		return 0, &feedmodels.TransientIOError{Op: "promotion attach", Err: err}
	}
	return res.RowsAffected()
}

const currentRowsSelect = `
	SELECT s.provider,
	       COALESCE(NULLIF(s.name, ''), s.provider || ' ' || s.branch_code) AS branch_name,
	       p.canonical_name,
	       COALESCE(p.barcode, ''),
	       po.price, po.promo_price, COALESCE(po.promo_text, ''), po.collected_at
	FROM prices.price_observations po
	JOIN prices.products p ON p.product_id = po.product_id
	JOIN prices.supermarkets s ON s.supermarket_id = po.branch_id
	WHERE po.price_type = 'regular'
	  AND po.collected_at = (
	    SELECT MAX(collected_at) FROM prices.price_observations
	    WHERE product_id = po.product_id AND branch_id = po.branch_id AND price_type = 'regular'
	  )`

// CurrentByBarcode returns the latest regular observation of the barcode in
// every branch that carries it.
func (r *ObservationRepository) CurrentByBarcode(ctx context.Context, barcode string) ([]models.PriceRow, error) {
	rows, err := r.db.QueryContext(ctx, currentRowsSelect+` AND p.barcode = $1;`, barcode)
	if err != nil {
		return nil, &feedmodels.TransientIOError{Op: "price query", Err: err}
	}
	return scanPriceRows(rows)
}

// Search returns current observations matching the browse filter.
func (r *ObservationRepository) Search(ctx context.Context, f models.SearchFilter) ([]models.PriceRow, error) {
	query := currentRowsSelect
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Query != "" {
		query += ` AND p.canonical_name ILIKE ` + arg("%"+f.Query+"%")
	}
	if f.MinPrice != nil {
		query += ` AND COALESCE(po.promo_price, po.price) >= ` + arg(*f.MinPrice)
	}
	if f.MaxPrice != nil {
		query += ` AND COALESCE(po.promo_price, po.price) <= ` + arg(*f.MaxPrice)
	}
	if f.PromoOnly {
		query += ` AND po.promo_price IS NOT NULL`
	}
	if f.Provider != "" {
		query += ` AND s.provider = ` + arg(f.Provider)
	}
	query += ` ORDER BY po.collected_at DESC, p.canonical_name LIMIT ` + arg(f.Limit) + `;`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &feedmodels.TransientIOError{Op: "price search", Err: err}
	}
	return scanPriceRows(rows)
}

func scanPriceRows(rows *sql.Rows) ([]models.PriceRow, error) {
	defer rows.Close()
	var out []models.PriceRow
	for rows.Next() {
		var row models.PriceRow
		if err := rows.Scan(&row.Provider, &row.BranchName, &row.CanonicalName, &row.Barcode,
			&row.Price, &row.PromoPrice, &row.PromoText, &row.CollectedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
