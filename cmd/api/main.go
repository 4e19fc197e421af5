package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"artledger.org/internal/config"
	"artledger.org/internal/httpapi"
	"artledger.org/internal/ledger"
	"artledger.org/internal/market"
	"artledger.org/internal/obs"
	"artledger.org/internal/registry"
	"artledger.org/internal/store/pg"
	"artledger.org/internal/stream"
	"artledger.org/internal/verification"
)

var version = "0.3.1"

func main() {
	// Local overrides; absent files are fine in containers.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("ARTLEDGER_COMMIT"))

	events := stream.New()
	funds := ledger.NewInMemory()
	artworks := registry.New(cfg.Admin(), cfg.OpenMinting, events)
	verifications := verification.New(cfg.Admin(), cfg.Treasury(), cfg.Fee(), funds, events)
	mkt := market.New(cfg.Market(), artworks, funds, events)

	ctx, stopIndexer := context.WithCancel(context.Background())
	defer stopIndexer()

	probe := httpapi.ReadyProbe{}
	var mirror *pg.Mirror
	if cfg.PGDSN != "" {
		mirror, err = pg.Open(cfg.PGDSN)
		if err != nil {
			log.Fatalf("open mirror db: %v", err)
		}
		probe.DB = mirror.DB()
		indexer := pg.NewIndexer(mirror, artworks, verifications, mkt, events)
		go indexer.Run(ctx)
	}

	api := httpapi.New(probe, version, artworks, verifications, mkt, funds, events)
	api.SetRateLimits(cfg.RateBurst, cfg.RatePerSec)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting artledger-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
	stopIndexer()
	if mirror != nil {
		_ = mirror.Close()
	}
	log.Println("Stopped")
}
