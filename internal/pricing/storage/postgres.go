package storage

import (
	"context"
	"database/sql"

	feedmodels "gosupermarket_api/internal/feed/models"
	"gosupermarket_api/internal/pricing/models"
	"gosupermarket_api/internal/pricing/storage/repositories"
)

// PostgresStore bundles the table repositories behind the business contracts.
type PostgresStore struct {
	supermarkets *repositories.SupermarketRepository
	products     *repositories.ProductRepository
	observations *repositories.ObservationRepository
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		supermarkets: repositories.NewSupermarketRepository(db),
		products:     repositories.NewProductRepository(db),
		observations: repositories.NewObservationRepository(db),
	}
}

func (s *PostgresStore) ResolveSupermarket(ctx context.Context, provider, branchCode string) (int64, error) {
	return s.supermarkets.Resolve(ctx, provider, branchCode)
}

func (s *PostgresStore) EnrichSupermarket(ctx context.Context, id int64, meta feedmodels.BranchMeta) error {
	return s.supermarkets.Enrich(ctx, id, meta)
}

func (s *PostgresStore) UpsertProduct(ctx context.Context, p models.Product) (int64, error) {
	return s.products.Upsert(ctx, p)
}

func (s *PostgresStore) UpsertObservation(ctx context.Context, o models.PriceObservation) (bool, error) {
	return s.observations.Upsert(ctx, o)
}

func (s *PostgresStore) AttachPromotion(ctx context.Context, u models.PromotionUpdate) (int64, error) {
	return s.observations.AttachPromotion(ctx, u)
}

func (s *PostgresStore) CurrentByBarcode(ctx context.Context, barcode string) ([]models.PriceRow, error) {
	return s.observations.CurrentByBarcode(ctx, barcode)
}

func (s *PostgresStore) Search(ctx context.Context, f models.SearchFilter) ([]models.PriceRow, error) {
	return s.observations.Search(ctx, f)
}

func (s *PostgresStore) ListSupermarkets(ctx context.Context) ([]models.Supermarket, error) {
	return s.supermarkets.List(ctx)
}

func (s *PostgresStore) GetSupermarket(ctx context.Context, provider, branchCode string) (*models.Supermarket, error) {
	return s.supermarkets.Get(ctx, provider, branchCode)
}
