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

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"auditescrow/internal/deliverable"
	"auditescrow/internal/escrow"
	"auditescrow/internal/events"
	"auditescrow/internal/governance"
	"auditescrow/internal/platform/config"
	"auditescrow/internal/platform/httpserver"
	"auditescrow/internal/platform/logger"
	"auditescrow/internal/platform/metrics"
	"auditescrow/internal/platform/middleware"
	"auditescrow/internal/platform/postgres"
	platformredis "auditescrow/internal/platform/redis"
	"auditescrow/internal/protocol"
	"auditescrow/internal/token"
	httptransport "auditescrow/internal/transport/http"
	"auditescrow/pkg/fixedpoint"
	"auditescrow/pkg/ids"
)

func main() {
	log := logger.New()
	if err := run(log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg := config.FromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	clk := clock.New()

	owner := ids.Address(cfg.OwnerAddress)
	escrowAccount := ids.Address(cfg.EscrowAccount)

	var (
		auditStore    protocol.AuditStore
		scheduleStore escrow.ScheduleStore
		health        func() error
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		auditStore = protocol.NewPostgresAuditStore(db)
		scheduleStore = escrow.NewPostgresScheduleStore(db)
		health = db.Ping
		log.Info("using postgres stores")
	} else {
		auditStore = protocol.NewInMemoryAuditStore()
		scheduleStore = escrow.NewInMemoryScheduleStore()
		log.Info("using in-memory stores")
	}

	var gateway governance.Gateway
	switch cfg.GovernanceBackend {
	case "governor":
		gateway = governance.NewGovernor(governance.GovernorConfig{
			VotingDelay:   cfg.GovVotingDelay,
			VotingPeriod:  cfg.GovVotingPeriod,
			TimelockDelay: cfg.GovTimelockDelay,
			Quorum:        cfg.GovQuorum,
		}, clk)
		log.Info("using governor governance backend")
	default:
		gateway = governance.NewManualGateway()
		log.Info("using manual governance backend")
	}
	rdb, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		gateway = governance.NewCachedGateway(gateway, rdb.Client, 0)
		log.Info("governance reads cached in redis")
	}

	// The in-memory bank stands in for the payment token; the genesis supply
	// funds the owner so agreements can actually settle.
	bank := token.NewBank()
	bank.Mint(owner, fixedpoint.Scale(cfg.GenesisSupply))

	var sink events.Publisher = events.NewMemoryPublisher()
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := events.NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return err
		}
		defer kafka.Close()
		sink = kafka
		log.Info("publishing events to kafka", "topic", cfg.KafkaTopic)
	}
	queue := events.NewChannelPublisher(256, log)
	worker := events.NewWorker(queue, sink, log)

	ledger := escrow.NewLedger(scheduleStore, bank, clk, log, owner, escrowAccount)
	registry := deliverable.NewRegistry(escrowAccount)
	svc := protocol.NewService(protocol.Config{
		Audits:       auditStore,
		Ledger:       ledger,
		Gateway:      gateway,
		Deliverables: registry,
		Token:        bank,
		Events:       queue,
		Metrics:      m,
		Logger:       log,
		Clock:        clk,
		Owner:        owner,
	})

	handler := httptransport.NewHandler(httptransport.HandlerConfig{
		Service:   svc,
		Logger:    log,
		Validator: middleware.NewJWTValidator(cfg.JWTSigningKey),
		Health:    health,
		Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return worker.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
