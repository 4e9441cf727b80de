package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/inkpress/inkgate/internal/api"
	"github.com/inkpress/inkgate/internal/challenge"
	"github.com/inkpress/inkgate/internal/claps"
	"github.com/inkpress/inkgate/internal/config"
	"github.com/inkpress/inkgate/internal/gate"
	"github.com/inkpress/inkgate/internal/ledger"
	"github.com/inkpress/inkgate/internal/proof"
	"github.com/inkpress/inkgate/internal/registry"
	"github.com/inkpress/inkgate/internal/storage"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(log)

	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	reg, err := registry.LoadFile(cfg.CatalogPath)
	if err != nil {
		log.Error("load catalog", "error", err)
		os.Exit(1)
	}
	log.Info("catalog loaded", "articles", len(reg.All()))

	store, err := openStore(cfg)
	if err != nil {
		log.Error("open storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	log.Info("storage initialized", "backend", cfg.StorageBackend)

	issuer, err := challenge.NewIssuer(challenge.Terms{
		Network:           cfg.Network,
		Asset:             cfg.AssetAddress,
		AssetName:         cfg.AssetName,
		AssetDecimals:     cfg.AssetDecimals,
		PayTo:             cfg.PayTo,
		MaxTimeoutSeconds: cfg.MaxTimeoutSeconds,
	})
	if err != nil {
		log.Error("configure challenge issuer", "error", err)
		os.Exit(1)
	}

	var receipts proof.ReceiptChecker
	if cfg.RPCEndpoint != "" {
		checker, err := proof.NewEthReceiptChecker(cfg.RPCEndpoint)
		if err != nil {
			log.Error("dial rpc endpoint", "error", err)
			os.Exit(1)
		}
		defer checker.Close()
		receipts = checker
	}
	if cfg.InsecureDemo {
		log.Warn("insecure demo mode: bare tx-hash proofs are accepted on shape alone")
	}

	validator, err := proof.NewValidator(proof.Config{
		Registry:      reg,
		Facilitator:   proof.NewFacilitatorClient(cfg.FacilitatorURL),
		Receipts:      receipts,
		AssetDecimals: cfg.AssetDecimals,
		InsecureDemo:  cfg.InsecureDemo,
	})
	if err != nil {
		log.Error("configure proof validator", "error", err)
		os.Exit(1)
	}

	led := ledger.New(store)
	counter := claps.New(store, func(id string) int {
		if e, ok := reg.Lookup(id); ok {
			return e.BaseClaps
		}
		return 0
	})

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector())
	metrics := gate.NewMetrics(promReg)

	g := gate.New(reg, issuer, validator, led, metrics)
	handler := api.NewHandler(reg, led, counter, validator)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})))
	handler.Register(router, g)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "network", cfg.Network)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown", "error", err)
	}
	log.Info("server stopped")
}

func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.StorageBackend {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return storage.NewPostgresStore(ctx, cfg.PostgresDSN)
	default:
		return storage.NewSQLiteStore(cfg.SQLitePath)
	}
}
