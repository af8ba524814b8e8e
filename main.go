package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/MeteoWatch/MW-Backend/internal/cron"
	"github.com/MeteoWatch/MW-Backend/internal/db"
	"github.com/MeteoWatch/MW-Backend/internal/district"
	"github.com/MeteoWatch/MW-Backend/internal/lookup"
	"github.com/MeteoWatch/MW-Backend/internal/middleware"
	"github.com/MeteoWatch/MW-Backend/internal/warning"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "Server is up!")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load(".env.local")
	db.Connect()

	district.Init()
	warning.Init()

	clock := clockwork.NewRealClock()
	store := district.NewStore(db.DB)
	loader := district.NewLoader(store, envOr("BOUNDARY_FILE", "./districts.geojson"))
	feed := warning.NewFeedClient(os.Getenv("WARNING_FEED_URL"))
	reconciler := warning.NewReconciler(db.DB, feed)
	archiver := warning.NewArchiver(db.DB, clock)
	service := lookup.NewService(db.DB, store, clock)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Boundary ingestion runs once at startup; idempotent, so restarts are
	// harmless.
	loader.Load(ctx)

	runner := cron.New(ctx)
	if _, err := runner.Add("@every "+envOr("RECONCILE_INTERVAL", "60s"), reconciler.Reconcile); err != nil {
		log.Fatal("Failed to schedule reconciler: ", err)
	}
	if _, err := runner.Add("@every "+envOr("ARCHIVE_INTERVAL", "1h"), archiver.ArchiveExpired); err != nil {
		log.Fatal("Failed to schedule archiver: ", err)
	}
	runner.Start()

	r := chi.NewRouter()
	r.Use(middleware.CORSMiddleware)
	r.Get("/", RootHandler)
	r.Mount("/api", lookup.SetupRoutes(lookup.NewHandler(service)))

	port := envOr("PORT", "5050")
	server := &http.Server{Addr: "0.0.0.0:" + port, Handler: r}

	go func() {
		<-ctx.Done()
		runner.Stop()
		_ = server.Shutdown(context.Background())
	}()

	log.Printf("Server listening on port :%s...", port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
