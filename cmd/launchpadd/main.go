package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"launchpad-engine-go/internal/config"
	"launchpad-engine-go/internal/launchpad"
	"launchpad-engine-go/internal/ledger"
	"launchpad-engine-go/internal/logger"
	"launchpad-engine-go/internal/models"
	"launchpad-engine-go/internal/oracle"
	"launchpad-engine-go/internal/persistence"
	"launchpad-engine-go/internal/registry"
	"launchpad-engine-go/internal/reporter"
	"launchpad-engine-go/internal/stream"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the config file")
	flag.Parse()

	// Bootstrap logger so .env and config loading can already log; re-init
	// below with the file's settings.
	logger.InitLogger(models.LogConfig{Level: "info", Output: "console"})

	if err := godotenv.Load(); err != nil {
		logger.S().Info("no .env file found, reading from system environment")
	} else {
		logger.S().Info("loaded configuration from .env file")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.S().Fatalf("failed to load config file: %v", err)
	}
	if owner := os.Getenv("LAUNCHPAD_OWNER"); owner != "" {
		cfg.Owner = owner
	}

	logger.InitLogger(cfg.LogConfig)
	defer logger.S().Sync()

	run(cfg)
}

func run(cfg *models.Config) {
	repo, err := openRepository(cfg)
	if err != nil {
		logger.S().Fatalf("failed to open sale repository: %v", err)
	}
	defer repo.Close()

	hub := stream.NewHub(logger.L())
	go hub.Run()
	defer hub.Close()

	bank := ledger.NewMemoryLedger()
	stakes := oracle.NewStaticOracle()

	reg, err := registry.NewRegistry(cfg.Owner, cfg.WithdrawFeeRate, cfg.LaunchpadFeeRate, registry.Dependencies{
		Ledger: bank,
		Oracle: stakes,
		Clock:  launchpad.SystemClock(),
		Logger: logger.L(),
		Sink:   hub,
	})
	if err != nil {
		logger.S().Fatalf("failed to create registry: %v", err)
	}

	if err := restoreSales(reg, repo); err != nil {
		logger.S().Fatalf("failed to restore persisted sales: %v", err)
	}

	if cfg.Sale.ProjectToken != "" {
		if _, ok := reg.Sale(cfg.Sale.ProjectToken); !ok {
			if err := createConfiguredSale(reg, bank, cfg.Sale); err != nil {
				logger.S().Fatalf("failed to create configured sale: %v", err)
			}
		}
	}

	stopSnapshots := startSnapshotLoop(reg, repo, time.Duration(cfg.SnapshotSec)*time.Second)

	server := &http.Server{Addr: cfg.ListenAddr, Handler: newMux(reg, hub)}
	go func() {
		logger.S().Infof("listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.S().Fatalf("http server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.S().Info("shutting down")
	close(stopSnapshots)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.S().Warnf("http shutdown: %v", err)
	}

	saveAllSales(reg, repo)
	logger.S().Info("stopped, sale state saved")
}

func openRepository(cfg *models.Config) (persistence.SaleRepository, error) {
	if cfg.DBPath == "" {
		logger.S().Warn("no db_path configured, sale state will not survive restarts")
		return persistence.NewMemoryRepository(), nil
	}
	return persistence.NewBadgerRepository(cfg.DBPath)
}

func restoreSales(reg *registry.Registry, repo persistence.SaleRepository) error {
	ids, err := repo.ListSaleIDs()
	if err != nil {
		return err
	}
	for _, id := range ids {
		snap, err := repo.LoadSnapshot(id)
		if err != nil {
			return err
		}
		if snap == nil {
			continue
		}
		if _, err := reg.RestoreSale(snap); err != nil {
			return err
		}
	}
	return nil
}

// createConfiguredSale mints the project-token reserve to the configured
// creator and opens the sale. The in-memory ledger starts empty on every
// boot, so the reserve has to be seeded before the registry can pull it.
func createConfiguredSale(reg *registry.Registry, bank *ledger.MemoryLedger, sc models.SaleConfig) error {
	params, err := sc.Parameters()
	if err != nil {
		return err
	}

	bank.Mint(params.ProjectToken, sc.Creator, params.ProjectTokenReserve)
	if err := bank.Approve(params.ProjectToken, sc.Creator, registry.Account, params.ProjectTokenReserve); err != nil {
		return err
	}

	engine, err := reg.CreateSale(sc.Creator, params)
	if err != nil {
		return err
	}
	logger.S().Infof("sale %s created for token %s", engine.SaleID(), params.ProjectToken)
	return nil
}

func startSnapshotLoop(reg *registry.Registry, repo persistence.SaleRepository, interval time.Duration) chan struct{} {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				saveAllSales(reg, repo)
			case <-stop:
				return
			}
		}
	}()
	return stop
}

func saveAllSales(reg *registry.Registry, repo persistence.SaleRepository) {
	for _, engine := range reg.Sales() {
		if err := repo.SaveSnapshot(engine.Snapshot()); err != nil {
			logger.S().Errorw("failed to persist sale snapshot", "sale_id", engine.SaleID(), "error", err)
		}
	}
}

func newMux(reg *registry.Registry, hub *stream.Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWS)

	mux.HandleFunc("/report", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("sale_id")
		engine, ok := reg.SaleByID(id)
		if !ok {
			http.Error(w, "unknown sale", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		reporter.WriteSaleReport(w, engine.Snapshot())
	})

	mux.HandleFunc("/sales", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		for _, engine := range reg.Sales() {
			w.Write([]byte(engine.SaleID() + " " + engine.Params().ProjectToken +
				" phase=" + engine.Phase().String() +
				" contributed=" + engine.TotalContributed().String() + "\n"))
		}
	})

	return mux
}
