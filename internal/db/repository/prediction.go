package repository

import (
	"context"
	"fmt"

	"github.com/cozy-creator/classify-server/internal/db/models"
	"github.com/uptrace/bun"
)

const MaxListLimit = 100

type IPredictionRepository interface {
	Repository[models.Prediction]
	WithTx(tx *bun.Tx) IPredictionRepository
	ListRecent(ctx context.Context, limit int) ([]models.Prediction, error)
	CountByClass(ctx context.Context) (map[string]int, error)
}

type PredictionRepository struct {
	db bun.IDB
}

func NewPredictionRepository(db *bun.DB) IPredictionRepository {
	return &PredictionRepository{db: db}
}

func (r *PredictionRepository) Create(ctx context.Context, prediction *models.Prediction) (*models.Prediction, error) {
	if prediction == nil {
		return nil, fmt.Errorf("prediction model is nil")
	}

	if _, err := r.db.NewInsert().Model(prediction).Exec(ctx); err != nil {
		return nil, err
	}

	return prediction, nil
}

func (r *PredictionRepository) GetByID(ctx context.Context, id string) (*models.Prediction, error) {
	var prediction models.Prediction
	if err := r.db.NewSelect().Model(&prediction).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, err
	}

	return &prediction, nil
}

func (r *PredictionRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.NewDelete().Model((*models.Prediction)(nil)).Where("id = ?", id).Exec(ctx)
	return err
}

// ListRecent returns the newest predictions first. limit is clamped to
// [1, MaxListLimit].
func (r *PredictionRepository) ListRecent(ctx context.Context, limit int) ([]models.Prediction, error) {
	if limit <= 0 {
		limit = 1
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	predictions := make([]models.Prediction, 0, limit)
	if err := r.db.NewSelect().Model(&predictions).Order("created_at DESC").Limit(limit).Scan(ctx); err != nil {
		return nil, err
	}

	return predictions, nil
}

func (r *PredictionRepository) CountByClass(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		ClassName string `bun:"class_name"`
		Count     int    `bun:"count"`
	}

	err := r.db.NewSelect().
		Model((*models.Prediction)(nil)).
		Column("class_name").
		ColumnExpr("COUNT(*) AS count").
		Group("class_name").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.ClassName] = row.Count
	}

	return counts, nil
}

func (r *PredictionRepository) WithTx(tx *bun.Tx) IPredictionRepository {
	return &PredictionRepository{db: tx}
}
