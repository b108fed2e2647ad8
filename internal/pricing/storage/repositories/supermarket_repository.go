package repositories

import (
	"context"
	"database/sql"

	feedmodels "gosupermarket_api/internal/feed/models"
	"gosupermarket_api/internal/pricing/models"
)

type SupermarketRepository struct {
	db *sql.DB
}

func NewSupermarketRepository(db *sql.DB) *SupermarketRepository {
	return &SupermarketRepository{db: db}
}

// Resolve returns the supermarket id for (provider, branchCode), inserting
// the row on first sighting. Concurrent first sightings are arbitrated by the
// unique constraint, not by an application lock.
func (r *SupermarketRepository) Resolve(ctx context.Context, provider, branchCode string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`
		INSERT INTO prices.supermarkets (provider, branch_code)
		VALUES ($1, $2)
		ON CONFLICT (provider, branch_code) DO UPDATE SET provider = EXCLUDED.provider
		RETURNING supermarket_id;
		`, provider, branchCode).Scan(&id)
	if err != nil {
		return 0, &feedmodels.TransientIOError{Op: "supermarket resolve", Err: err}
	}
	return id, nil
}

// Enrich fills still-empty branch fields with store-feed metadata. Existing
// values win.
func (r *SupermarketRepository) Enrich(ctx context.Context, id int64, meta feedmodels.BranchMeta) error {
	_, err := r.db.ExecContext(ctx,
		`
		UPDATE prices.supermarkets SET
		  name = COALESCE(name, NULLIF($2, '')),
		  city = COALESCE(city, NULLIF($3, '')),
		  address = COALESCE(address, NULLIF($4, ''))
		WHERE supermarket_id = $1;
		`, id, meta.Name, meta.City, meta.Address)
	if err != nil {
		return &feedmodels.TransientIOError{Op: "supermarket enrich", Err: err}
	}
	return nil
}

func (r *SupermarketRepository) List(ctx context.Context) ([]models.Supermarket, error) {
	rows, err := r.db.QueryContext(ctx,
		`
		SELECT supermarket_id, provider, branch_code,
		       COALESCE(name, ''), COALESCE(city, ''), COALESCE(address, '')
		FROM prices.supermarkets
		ORDER BY provider, branch_code;
		`)
	if err != nil {
		return nil, &feedmodels.TransientIOError{Op: "supermarket list", Err: err}
	}
	defer rows.Close()

	var out []models.Supermarket
	for rows.Next() {
		var sm models.Supermarket
		if err := rows.Scan(&sm.ID, &sm.Provider, &sm.BranchCode, &sm.Name, &sm.City, &sm.Address); err != nil {
			return nil, err
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

func (r *SupermarketRepository) Get(ctx context.Context, provider, branchCode string) (*models.Supermarket, error) {
	var sm models.Supermarket
	err := r.db.QueryRowContext(ctx,
		`
		SELECT supermarket_id, provider, branch_code,
		       COALESCE(name, ''), COALESCE(city, ''), COALESCE(address, '')
		FROM prices.supermarkets
		WHERE provider = $1 AND branch_code = $2;
		`, provider, branchCode).
		Scan(&sm.ID, &sm.Provider, &sm.BranchCode, &sm.Name, &sm.City, &sm.Address)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &feedmodels.TransientIOError{Op: "supermarket get", Err: err}
	}
	return &sm, nil
}
