package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/paulexconde/storecheck/internal/api"
	"github.com/paulexconde/storecheck/internal/config"
	"github.com/paulexconde/storecheck/internal/gateway"
	"github.com/paulexconde/storecheck/internal/services"
)

func main() {
	configPath := flag.String("config", config.SafeEnv("STORECHECK_CONFIG", "storecheck.yaml"), "path to the YAML config file")
	migrate := flag.Bool("migrate", true, "create missing tables on startup")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("config: jwt_secret is required")
	}
	if err := services.SetRatingRules(cfg.RatingRules); err != nil {
		log.Fatalf("rating rules: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := gateway.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	blobs, err := gateway.NewLocalBlobStore(cfg.Media.Dir, cfg.Media.BaseURL)
	if err != nil {
		log.Fatalf("media: %v", err)
	}

	pg := gateway.NewPostgres(db, blobs)
	if *migrate {
		if err := pg.Migrate(ctx); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	// Media is served locally only when the base URL is a path on this server.
	mediaPath := ""
	if strings.HasPrefix(cfg.Media.BaseURL, "/") {
		mediaPath = cfg.Media.BaseURL
	}

	router := api.NewRouter(api.Deps{
		Reference: services.NewReferenceService(pg),
		Submission: services.NewSubmissionService(pg, services.SubmissionOptions{
			UploadWorkers: cfg.Uploads.Workers,
			UploadRetries: cfg.Uploads.Retries,
			RetryDelay:    cfg.Uploads.RetryDelay,
		}),
		Questions:       pg,
		Config:          services.NewConfigService(pg),
		History:         services.NewHistoryService(pg.History()),
		Dashboard:       services.NewDashboardService(pg),
		Secret:          []byte(cfg.JWTSecret),
		CORSOrigins:     cfg.CORSOrigins,
		MediaDir:        cfg.Media.Dir,
		MediaPath:       mediaPath,
		LocationTimeout: cfg.Location.Timeout,
		LocationMaxAge:  cfg.Location.MaxAge,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("storecheck listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("storecheck stopped")
}
