package models

// Favorite marks an Xtream live stream as a favorite.
type Favorite struct {
	BaseModel
	StreamID int `gorm:"uniqueIndex;not null" json:"stream_id"`
}

// TableName returns the table name for favorites.
func (Favorite) TableName() string {
	return "favorites"
}
