package repositories

import (
	"context"
	"database/sql"

	feedmodels "gosupermarket_api/internal/feed/models"
	"gosupermarket_api/internal/pricing/models"
)

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Upsert creates the product on first sighting; later sightings only fill
// previously-null fields. Incoming nulls never clobber existing values.
// Barcode-less products conflict on (supermarket_id, canonical_name) instead.
func (r *ProductRepository) Upsert(ctx context.Context, p models.Product) (int64, error) {
	var (
		id  int64
		err error
	)
	if p.Barcode != "" {
		err = r.db.QueryRowContext(ctx,
			`
			INSERT INTO prices.products
			  (supermarket_id, barcode, canonical_name, brand, category, size_value, size_unit)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (supermarket_id, barcode) WHERE barcode IS NOT NULL
			DO UPDATE SET
			  canonical_name = COALESCE(prices.products.canonical_name, EXCLUDED.canonical_name),
			  brand          = COALESCE(prices.products.brand, EXCLUDED.brand),
			  category       = COALESCE(prices.products.category, EXCLUDED.category),
			  size_value     = COALESCE(prices.products.size_value, EXCLUDED.size_value),
			  size_unit      = COALESCE(prices.products.size_unit, EXCLUDED.size_unit)
			RETURNING product_id;
			`,
			p.SupermarketID, p.Barcode, p.CanonicalName, p.Brand, p.Category, p.SizeValue, p.SizeUnit).
			Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx,
			`
			INSERT INTO prices.products
			  (supermarket_id, barcode, canonical_name, brand, category, size_value, size_unit)
			VALUES ($1, NULL, $2, $3, $4, $5, $6)
			ON CONFLICT (supermarket_id, canonical_name) WHERE barcode IS NULL
			DO UPDATE SET
			  brand      = COALESCE(prices.products.brand, EXCLUDED.brand),
			  category   = COALESCE(prices.products.category, EXCLUDED.category),
			  size_value = COALESCE(prices.products.size_value, EXCLUDED.size_value),
			  size_unit  = COALESCE(prices.products.size_unit, EXCLUDED.size_unit)
			RETURNING product_id;
			`,
			p.SupermarketID, p.CanonicalName, p.Brand, p.Category, p.SizeValue, p.SizeUnit).
			Scan(&id)
	}
	if err != nil {
		return 0, &feedmodels.TransientIOError{Op: "product upsert", Err: err}
	}
	return id, nil
}

func (r *ProductRepository) GetByBarcode(ctx context.Context, supermarketID int64, barcode string) (*models.Product, error) {
	var p models.Product
	var bc sql.NullString
	err := r.db.QueryRowContext(ctx,
		`
		SELECT product_id, supermarket_id, barcode, canonical_name, brand, category, size_value, size_unit
		FROM prices.products
		WHERE supermarket_id = $1 AND barcode = $2;
		`, supermarketID, barcode).
		Scan(&p.ID, &p.SupermarketID, &bc, &p.CanonicalName, &p.Brand, &p.Category, &p.SizeValue, &p.SizeUnit)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &feedmodels.TransientIOError{Op: "product get", Err: err}
	}
	p.Barcode = bc.String
	return &p, nil
}
