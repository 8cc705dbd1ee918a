// The agents service hosts the peer agents on their transport topics: the
// three logistics transition agents and the exchange farms. One process can
// host all of them; each runs its own subscription loop.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cafemesh/cafemesh/agent"
	"github.com/cafemesh/cafemesh/config"
	"github.com/cafemesh/cafemesh/internal/logging"
	"github.com/cafemesh/cafemesh/logistics"
	"github.com/cafemesh/cafemesh/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "agents: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.NewLoader().WithConfigPath(*configPath).Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log, "agents")
	if err != nil {
		return err
	}
	defer logger.Sync()

	t, err := transport.NewRedisTransport(transport.RedisConfig{
		Addr:     cfg.Transport.Redis.Addr,
		Password: cfg.Transport.Redis.Password,
		DB:       cfg.Transport.Redis.DB,
		PoolSize: cfg.Transport.Redis.PoolSize,
	}, logger)
	if err != nil {
		return err
	}
	defer t.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services := []*agent.Service{
		agent.NewService(t, logistics.FarmCard.Topic, agent.NewLogisticsResponder(logistics.Farm()), logger),
		agent.NewService(t, logistics.ShipperCard.Topic, agent.NewLogisticsResponder(logistics.Shipper()), logger),
		agent.NewService(t, logistics.AccountantCard.Topic, agent.NewLogisticsResponder(logistics.Accountant()), logger),
		agent.NewService(t, logistics.BrazilCard.Topic, agent.NewFarmResponder("Brazil", 5000), logger),
		agent.NewService(t, logistics.ColombiaCard.Topic, agent.NewFarmResponder("Colombia", 3200), logger),
		agent.NewService(t, logistics.VietnamCard.Topic, agent.NewFarmResponder("Vietnam", 7400), logger),
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, svc := range services {
		svc := svc
		g.Go(func() error {
			return svc.Run(gctx)
		})
	}

	logger.Info("agents running", zap.Int("count", len(services)))
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("agents stopped")
	return nil
}
