package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/levelfi-io/referral-orchestrator/internal/aggregator"
	"github.com/levelfi-io/referral-orchestrator/internal/api"
	"github.com/levelfi-io/referral-orchestrator/internal/db"
	"github.com/levelfi-io/referral-orchestrator/internal/db/model"
	"github.com/levelfi-io/referral-orchestrator/internal/distribution"
	"github.com/levelfi-io/referral-orchestrator/internal/eligibility"
	"github.com/levelfi-io/referral-orchestrator/internal/events"
	"github.com/levelfi-io/referral-orchestrator/internal/observability/metrics"
	"github.com/levelfi-io/referral-orchestrator/internal/orchestrator"
	"github.com/levelfi-io/referral-orchestrator/internal/queue"
	"github.com/levelfi-io/referral-orchestrator/internal/types"
)

const shutdownTimeout = 20 * time.Second

func StartServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start-server",
		Short: "Starts the referral orchestrator admin server",
		Args:  cobra.ExactArgs(0),
		RunE:  startServer,
	}

	return cmd
}

func startServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger := log.Ctx(ctx)

	stack, err := buildLedgerStack()
	if err != nil {
		logger.Fatal().Err(err).Msg("error while building ledger clients")
	}
	defer stack.Close()

	metrics.Init(stack.cfg.Metrics.GetMetricsPort())

	dbClient, err := db.New(ctx, stack.cfg.Db)
	if err != nil {
		logger.Fatal().Err(err).Msg("error while creating db client")
	}

	var publisher *queue.Publisher
	if stack.cfg.Queue != nil {
		publisher, err = queue.New(stack.cfg.Queue)
		if err != nil {
			logger.Fatal().Err(err).Msg("error while creating queue publisher")
		}
	}

	bus := events.NewBus()
	bus.Subscribe(func(ctx context.Context, evt *events.LedgerEvent) {
		if evt.Type != types.EventLevelIncomePaid {
			return
		}
		record := &model.IncomeRecord{
			Account:     evt.Account.Hex(),
			UserID:      evt.UserID,
			Level:       evt.Level,
			Amount:      evt.Amount,
			TxHash:      evt.TxHash.Hex(),
			BlockNumber: evt.BlockNumber,
		}
		if err := dbClient.SaveIncomeRecord(ctx, record); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to persist income record")
		}
	})

	// event subscriptions go over websocket when configured; otherwise the
	// bridge polls the regular RPC endpoint
	logBackend := events.LogBackend(stack.eth)
	if stack.cfg.Ledger.WSAddr != "" {
		wsClient, err := ethclient.Dial(stack.cfg.Ledger.WSAddr)
		if err != nil {
			logger.Fatal().Err(err).Msg("error while dialing ledger websocket")
		}
		defer wsClient.Close()
		logBackend = wsClient
	}
	bridge := events.NewBridge(
		logBackend,
		stack.ledger,
		bus,
		dbClient,
		stack.cfg.Ledger.Contract(),
		stack.cfg.Ledger.EventPollInterval,
	)
	if err := bridge.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("error while starting event sync bridge")
	}

	orch := orchestrator.New(stack.ledger, dbClient, publisher)
	handler := api.NewHandler(
		stack.ledger,
		eligibility.New(stack.ledger, stack.cfg.Eligibility.MinDirectReferrals),
		distribution.New(stack.ledger),
		aggregator.New(stack.ledger, stack.cfg.Ledger.ChildFanout),
		dbClient,
		orch,
		stack.signer.Address(),
	)
	server := api.NewServer(&stack.cfg.HTTP, handler)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error().Err(err).Msg("admin api server failed")
		}
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	bridge.Stop()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error while stopping admin api server")
	}
	publisher.Close()
	if err := dbClient.Close(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error while closing db client")
	}

	return nil
}
