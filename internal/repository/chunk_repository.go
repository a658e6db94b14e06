package repository

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"groundedqa/internal/model"
)

type ChunkRepository struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// InsertIfAbsent inserts chunk unless (document_key, ordinal) already exists.
// An existing row is left untouched; inserted reports which case happened.
func (r *ChunkRepository) InsertIfAbsent(ctx context.Context, chunk *model.Chunk) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "document_key"}, {Name: "ordinal"}},
			DoNothing: true,
		}).
		Create(chunk)
	if res.Error != nil {
		return false, fmt.Errorf("insert chunk failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *ChunkRepository) Exists(ctx context.Context, documentKey string, ordinal int) (bool, error) {
	var id uint
	err := r.db.WithContext(ctx).
		Model(&model.Chunk{}).
		Select("id").
		Where("document_key = ? AND ordinal = ?", documentKey, ordinal).
		Limit(1).
		Take(&id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check chunk existence failed: %w", err)
	}
	return true, nil
}

// ScanAll streams every stored chunk in id order. Iteration stops at the
// first error, which is yielded with a zero chunk.
func (r *ChunkRepository) ScanAll(ctx context.Context) iter.Seq2[model.Chunk, error] {
	return func(yield func(model.Chunk, error) bool) {
		rows, err := r.db.WithContext(ctx).Model(&model.Chunk{}).Order("id ASC").Rows()
		if err != nil {
			yield(model.Chunk{}, fmt.Errorf("scan chunks failed: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var chunk model.Chunk
			if err := r.db.ScanRows(rows, &chunk); err != nil {
				yield(model.Chunk{}, fmt.Errorf("decode chunk row failed: %w", err))
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(model.Chunk{}, fmt.Errorf("iterate chunks failed: %w", err))
		}
	}
}

func (r *ChunkRepository) ListByDocumentKey(ctx context.Context, documentKey string) ([]model.Chunk, error) {
	var chunks []model.Chunk
	if err := r.db.WithContext(ctx).Where("document_key = ?", documentKey).Order("ordinal ASC").Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list chunks by document failed: %w", err)
	}
	return chunks, nil
}

func (r *ChunkRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Chunk{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count chunks failed: %w", err)
	}
	return n, nil
}

// PruneFrom deletes the chunks of documentKey whose ordinal is >= ordinal.
func (r *ChunkRepository) PruneFrom(ctx context.Context, documentKey string, ordinal int) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("document_key = ? AND ordinal >= ?", documentKey, ordinal).
		Delete(&model.Chunk{})
	if res.Error != nil {
		return 0, fmt.Errorf("prune chunks failed: %w", res.Error)
	}
	return res.RowsAffected, nil
}
