package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/cozy-creator/classify-server/internal/db/models"
	"github.com/uptrace/bun"
)

type IAPIKeyRepository interface {
	Repository[models.APIKey]
	WithTx(tx *bun.Tx) IAPIKeyRepository
	RevokeAPIKeyWithHash(ctx context.Context, keyHash string) (bool, error)
	GetAPIKeyWithHash(ctx context.Context, keyHash string) (*models.APIKey, error)
	ListAPIKeys(ctx context.Context) ([]models.APIKey, error)
}

type APIKeyRepository struct {
	db bun.IDB
}

func NewAPIKeyRepository(db *bun.DB) IAPIKeyRepository {
	return &APIKeyRepository{db: db}
}

func (r *APIKeyRepository) Create(ctx context.Context, apikey *models.APIKey) (*models.APIKey, error) {
	if apikey == nil {
		return nil, fmt.Errorf("apikey model is nil")
	}

	if _, err := r.db.NewInsert().Model(apikey).Exec(ctx); err != nil {
		return nil, err
	}

	return apikey, nil
}

func (r *APIKeyRepository) GetByID(ctx context.Context, id string) (*models.APIKey, error) {
	var apikey models.APIKey
	if err := r.db.NewSelect().Model(&apikey).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, err
	}

	return &apikey, nil
}

func (r *APIKeyRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.NewDelete().Model((*models.APIKey)(nil)).Where("id = ?", id).Exec(ctx)
	return err
}

// RevokeAPIKeyWithHash reports whether a key with that hash existed.
func (r *APIKeyRepository) RevokeAPIKeyWithHash(ctx context.Context, keyHash string) (bool, error) {
	res, err := r.db.NewUpdate().
		Model((*models.APIKey)(nil)).
		Set("is_revoked = ?", true).
		Set("updated_at = ?", time.Now().UTC()).
		Where("key_hash = ?", keyHash).
		Exec(ctx)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

func (r *APIKeyRepository) GetAPIKeyWithHash(ctx context.Context, keyHash string) (*models.APIKey, error) {
	var apiKey models.APIKey
	if err := r.db.NewSelect().Model(&apiKey).Where("key_hash = ?", keyHash).Scan(ctx); err != nil {
		return nil, err
	}

	return &apiKey, nil
}

func (r *APIKeyRepository) ListAPIKeys(ctx context.Context) ([]models.APIKey, error) {
	var apiKeys []models.APIKey
	if err := r.db.NewSelect().Model(&apiKeys).Order("created_at ASC").Scan(ctx); err != nil {
		return nil, err
	}

	return apiKeys, nil
}

func (r *APIKeyRepository) WithTx(tx *bun.Tx) IAPIKeyRepository {
	return &APIKeyRepository{db: tx}
}
