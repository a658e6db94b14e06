package model

// LegacyDocument is the pre-ordinal row shape: one row per source URL with
// no chunk position. It is only read during migration.
type LegacyDocument struct {
	ID      uint   `gorm:"primaryKey"`
	URL     string `gorm:"size:512;uniqueIndex"`
	Title   string `gorm:"size:512"`
	Content string `gorm:"type:text"`
	Vector  []byte
}

func (LegacyDocument) TableName() string {
	return "documents"
}
