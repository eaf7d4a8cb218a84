package migrations

import (
	"gorm.io/gorm"

	"github.com/jmylchreest/tvee/internal/models"
)

// AllMigrations returns all registered migrations in order.
func AllMigrations() []Migration {
	return []Migration{
		migration001Favorites(),
	}
}

func migration001Favorites() Migration {
	return Migration{
		Version:     "001",
		Description: "Create favorites table",
		Up: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&models.Favorite{})
		},
		Down: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&models.Favorite{})
		},
	}
}
