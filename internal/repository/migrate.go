package repository

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"groundedqa/internal/model"
)

const legacyBatchSize = 200

// Migrate brings the schema to the current chunk shape. A pre-ordinal
// "documents" table is copied into "chunks" with ordinal 0 and then dropped,
// all inside one transaction.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Chunk{}); err != nil {
		return fmt.Errorf("auto migrate chunks failed: %w", err)
	}

	migrator := db.Migrator()
	if !migrator.HasTable(&model.LegacyDocument{}) {
		return nil
	}
	if migrator.HasColumn(&model.LegacyDocument{}, "ordinal") || !migrator.HasColumn(&model.LegacyDocument{}, "url") {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var legacy []model.LegacyDocument
		res := tx.FindInBatches(&legacy, legacyBatchSize, func(_ *gorm.DB, _ int) error {
			rows := make([]model.Chunk, 0, len(legacy))
			for _, doc := range legacy {
				rows = append(rows, model.Chunk{
					DocumentKey: doc.URL,
					Title:       doc.Title,
					Ordinal:     0,
					Text:        doc.Content,
					Vector:      doc.Vector,
				})
			}
			if len(rows) == 0 {
				return nil
			}
			return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
		})
		if res.Error != nil {
			return fmt.Errorf("copy legacy documents failed: %w", res.Error)
		}
		if err := tx.Migrator().DropTable(&model.LegacyDocument{}); err != nil {
			return fmt.Errorf("drop legacy documents table failed: %w", err)
		}
		return nil
	})
}
