package cmd

import (
	"context"
	"fmt"
	"time"

	"oraclequest/bot"
	"oraclequest/bot/common"
	"oraclequest/config"
	"oraclequest/database"
	"oraclequest/domain/address"
	"oraclequest/domain/services"
	"oraclequest/events"
	"oraclequest/infrastructure"
	"oraclequest/infrastructure/observability"
	"oraclequest/repository"

	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the ledger bot
func Run(ctx context.Context) error {
	log.Info("Starting oraclequest bot...")

	cfg := config.Get()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	metrics := observability.NewMetricsProvider(cfg)
	if err := metrics.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established successfully")

	publisher, natsClient, err := newEventPublisher(ctx, cfg, metrics)
	if err != nil {
		db.Close()
		return err
	}

	stores := repository.NewStoreFactory(db, publisher, repository.StoreOptions{
		ProgramID: cfg.ProgramID,
		Rent: repository.RentSchedule{
			LamportsPerByte: cfg.RentLamportsPerByte,
			OverheadBytes:   cfg.RentOverheadBytes,
		},
	})

	ledger := &common.Ledger{
		Engine:      services.NewEngine(metrics),
		Stores:      stores,
		Reader:      repository.NewLedgerReader(db),
		Space:       address.NewDirectSpace(cfg.ProgramID),
		IsAuthority: cfg.IsAuthority,
	}

	log.Info("Initializing Discord bot...")
	discordBot, err := bot.New(bot.Config{
		Token:   cfg.DiscordToken,
		GuildID: cfg.GuildID,
	}, ledger)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize Discord bot: %w", err)
	}
	log.Info("Discord bot initialized successfully")

	log.Infof("Bot is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	log.Info("Shutting down bot...")

	if err := discordBot.Close(); err != nil {
		log.Errorf("Error closing Discord bot: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if natsClient != nil {
		if err := natsClient.Close(); err != nil {
			log.Errorf("Error closing NATS connection: %v", err)
		}
	}

	if err := metrics.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Error shutting down metrics: %v", err)
	}

	log.Info("Closing database connection...")
	db.Close()

	log.Info("Shutdown completed")
	return nil
}

// newEventPublisher publishes committed events to JetStream when NATS is
// configured and keeps them in process otherwise
func newEventPublisher(ctx context.Context, cfg *config.Config, metrics *observability.MetricsProvider) (events.Publisher, *infrastructure.NATSClient, error) {
	if cfg.NATSServers == "" {
		log.Info("NATS not configured, domain events stay in process")
		bus := events.NewBus()
		for _, t := range committedEventTypes {
			bus.Subscribe(t, logCommittedEvent)
		}
		return bus, nil, nil
	}

	log.WithField("servers", cfg.NATSServers).Info("Connecting to NATS...")
	client := infrastructure.NewNATSClient(cfg.NATSServers, "oraclequest-bot")
	if err := client.Connect(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	mapper := infrastructure.NewEventSubjectMapper()
	if err := client.EnsureStream(infrastructure.DomainEventStream, mapper.GetAllSubjects()); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to ensure event stream: %w", err)
	}

	publisher := infrastructure.NewNATSEventPublisher(client, mapper, metrics)
	for _, t := range committedEventTypes {
		publisher.RegisterLocalHandler(t, func(ctx context.Context, e events.Event) error {
			logCommittedEvent(ctx, e)
			return nil
		})
	}
	return publisher, client, nil
}

var committedEventTypes = []events.EventType{
	events.EventTypePlayerInitialized,
	events.EventTypeEventCreated,
	events.EventTypeBetPlaced,
	events.EventTypeEventResolved,
	events.EventTypeWinningsClaimed,
	events.EventTypeBetClosed,
}

func logCommittedEvent(_ context.Context, e events.Event) {
	log.WithFields(log.Fields{
		"type":  e.Type(),
		"event": fmt.Sprintf("%+v", e),
	}).Debug("Committed domain event")
}
