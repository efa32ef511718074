package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/adslot-experiment/adslot/config"
	"github.com/adslot-experiment/adslot/internal/ledger"
	"github.com/adslot-experiment/adslot/internal/slot"
	"github.com/adslot-experiment/adslot/internal/slotserver"
)

func main() {
	port := flag.Int("port", 0, "HTTP port (0 = use config.json)")
	configPath := flag.String("config", "config/config.json", "Path to config file")
	memory := flag.Bool("memory", false, "Use an in-memory ledger instead of the persistent one")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("No config at %s, using defaults: %v", *configPath, err)
		cfg = config.GetConfig()
	}

	// Allow environment variable overrides
	if envPort := os.Getenv("PORT"); envPort != "" {
		if p, err := strconv.Atoi(envPort); err == nil {
			*port = p
		}
	}
	if envStorage := os.Getenv("STORAGE_DIR"); envStorage != "" {
		cfg.StorageDir = envStorage
	}

	if *port == 0 {
		*port = cfg.ListenPort
	}
	if *port == 0 {
		*port = 8080
	}

	clock := ledger.WallClock{}
	var led *ledger.StateLedger
	if *memory {
		led, err = ledger.NewMemoryLedger(clock)
	} else {
		led, err = ledger.NewPersistentLedger(cfg.StorageDir, clock)
		if err != nil {
			log.Printf("WARNING: Failed to open persistent ledger at %s: %v. Falling back to in-memory ledger.",
				cfg.StorageDir, err)
			led, err = ledger.NewMemoryLedger(clock)
		}
	}
	if err != nil {
		log.Fatalf("Failed to create ledger: %v", err)
	}
	defer led.Close()

	mech := slot.NewMechanism(led, slot.Params{
		RateDivisor:  cfg.RateDivisor,
		Admin:        common.HexToAddress(cfg.Admin),
		TaxCollector: common.HexToAddress(cfg.TaxCollector),
	})

	log.Printf("Slot mechanism: rateDivisor=%d admin=%s taxCollector=%s vault=%s",
		cfg.RateDivisor, cfg.Admin, cfg.TaxCollector, mech.Params().Vault.Hex())

	server := slotserver.NewServer(mech, led)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(*port)
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Printf("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Slot service exited: %v", err)
	}
}
