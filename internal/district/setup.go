package district

import (
	"log"

	"github.com/MeteoWatch/MW-Backend/internal/db"
)

func Init() {
	if err := db.EnsureSchema(db.DB, "meteo"); err != nil {
		log.Fatal("Failed to create meteo schema: ", err)
	}
	if err := db.EnsurePostGIS(db.DB); err != nil {
		log.Fatal("Failed to enable PostGIS: ", err)
	}

	if err := db.DB.AutoMigrate(&District{}); err != nil {
		log.Fatal("Failed to auto-migrate district tables: ", err)
	}

	// AutoMigrate does not know about spatial indexes.
	err := db.DB.Exec(`
		CREATE INDEX IF NOT EXISTS idx_districts_boundary
		ON meteo.districts USING GIST (boundary)
	`).Error
	if err != nil {
		log.Fatal("Failed to create boundary index: ", err)
	}
}
