package main

import (
	"context"
	"flag"
	"os"

	"github.com/MeteoWatch/MW-Backend/internal/db"
	"github.com/MeteoWatch/MW-Backend/internal/district"
	"github.com/joho/godotenv"
)

// One-shot boundary ingestion, for seeding a database outside the server
// process. Exit code reflects the run outcome.
func main() {
	_ = godotenv.Load(".env.local")

	file := flag.String("file", "./districts.geojson", "path to the GeoJSON boundary export")
	flag.Parse()

	db.Connect()
	district.Init()

	loader := district.NewLoader(district.NewStore(db.DB), *file)
	if !loader.Load(context.Background()) {
		os.Exit(1)
	}
}
