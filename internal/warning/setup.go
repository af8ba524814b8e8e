package warning

import (
	"log"

	"github.com/MeteoWatch/MW-Backend/internal/db"
)

func Init() {
	if err := db.EnsureSchema(db.DB, "meteo"); err != nil {
		log.Fatal("Failed to create meteo schema: ", err)
	}

	if err := db.DB.AutoMigrate(&MeteoWarning{}, &MeteoWarningArchive{}); err != nil {
		log.Fatal("Failed to auto-migrate warning tables: ", err)
	}
}
