package cmd

import (
	"context"
	"fmt"
	"strconv"

	"oraclequest/compressed"
	"oraclequest/config"
	"oraclequest/domain/address"
	"oraclequest/domain/entities"
	"oraclequest/domain/interfaces"
	"oraclequest/domain/services"
	"oraclequest/infrastructure"
	"oraclequest/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

const compressedUsage = `usage: oraclequest compressed <instruction> [args...]
  init-player   <signer>
  create-event  <authority> <event-id> <description>
  place-bet     <signer> <event-id> <yes|no> <amount>
  resolve-event <authority> <event-id> <yes|no>
  claim         <signer> <event-id>
  close-bet     <signer> <event-id>
signers and authorities are hex-encoded 32-byte account ids`

// RunCompressed executes one compressed-regime instruction against the tree
// service reachable over NATS
func RunCompressed(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%s", compressedUsage)
	}

	cfg := config.Get()
	if cfg.NATSServers == "" {
		return fmt.Errorf("NATS_SERVERS is required for compressed instructions")
	}

	metrics := observability.NewMetricsProvider(cfg)
	if err := metrics.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer metrics.Shutdown(context.Background())

	client := infrastructure.NewNATSClient(cfg.NATSServers, "oraclequest-cli")
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer client.Close()

	runner := compressed.NewRunner(infrastructure.NewNATSTreeClient(client), compressed.Options{
		ProgramID: cfg.ProgramID,
		Publisher: infrastructure.NewNATSEventPublisher(client, infrastructure.NewEventSubjectMapper(), metrics),
		Observer:  metrics,
	}, compressed.DefaultAttempts)

	result, err := runInstruction(ctx, services.NewEngine(metrics), runner, args)
	if err != nil {
		return err
	}
	log.WithField("instruction", args[0]).Info(result)
	return nil
}

func runInstruction(ctx context.Context, engine *services.Engine, runner *compressed.Runner, args []string) (string, error) {
	signer, err := entities.ParseAccountID(args[1])
	if err != nil {
		return "", err
	}
	rest := args[2:]

	var (
		result string
		plan   func(space address.Space) compressed.Plan
		fn     func(store interfaces.EntityStore) error
	)

	switch args[0] {
	case "init-player":
		plan = func(space address.Space) compressed.Plan { return compressed.PlanInitializePlayer(space, signer) }
		fn = func(store interfaces.EntityStore) error {
			_, err := engine.InitializePlayer(ctx, store, signer)
			result = fmt.Sprintf("profile created for %s", signer)
			return err
		}

	case "create-event":
		if len(rest) != 2 {
			return "", fmt.Errorf("%s", compressedUsage)
		}
		eventID, err := parseEventID(rest[0])
		if err != nil {
			return "", err
		}
		plan = func(space address.Space) compressed.Plan { return compressed.PlanCreateEvent(space, eventID) }
		fn = func(store interfaces.EntityStore) error {
			_, err := engine.CreateOracleEvent(ctx, store, signer, eventID, rest[1])
			result = fmt.Sprintf("event %d created", eventID)
			return err
		}

	case "place-bet":
		if len(rest) != 3 {
			return "", fmt.Errorf("%s", compressedUsage)
		}
		eventID, err := parseEventID(rest[0])
		if err != nil {
			return "", err
		}
		outcome, err := parseOutcome(rest[1])
		if err != nil {
			return "", err
		}
		amount, err := strconv.ParseUint(rest[2], 10, 64)
		if err != nil {
			return "", fmt.Errorf("invalid amount %q: %w", rest[2], err)
		}
		plan = func(space address.Space) compressed.Plan { return compressed.PlanPlaceBet(space, signer, eventID) }
		fn = func(store interfaces.EntityStore) error {
			_, err := engine.PlaceBet(ctx, store, signer, eventID, outcome, amount)
			result = fmt.Sprintf("bet of %d placed on event %d", amount, eventID)
			return err
		}

	case "resolve-event":
		if len(rest) != 2 {
			return "", fmt.Errorf("%s", compressedUsage)
		}
		eventID, err := parseEventID(rest[0])
		if err != nil {
			return "", err
		}
		outcome, err := parseOutcome(rest[1])
		if err != nil {
			return "", err
		}
		plan = func(space address.Space) compressed.Plan { return compressed.PlanResolveEvent(space, eventID) }
		fn = func(store interfaces.EntityStore) error {
			_, err := engine.ResolveEvent(ctx, store, signer, eventID, outcome)
			result = fmt.Sprintf("event %d resolved", eventID)
			return err
		}

	case "claim":
		if len(rest) != 1 {
			return "", fmt.Errorf("%s", compressedUsage)
		}
		eventID, err := parseEventID(rest[0])
		if err != nil {
			return "", err
		}
		plan = func(space address.Space) compressed.Plan {
			return compressed.PlanClaimWinnings(space, signer, address.Bet(space, signer, eventID).Address, eventID)
		}
		fn = func(store interfaces.EntityStore) error {
			betAddr := address.Bet(store.Addresses(), signer, eventID).Address
			res, err := engine.ClaimWinnings(ctx, store, signer, betAddr, eventID)
			if err == nil {
				result = fmt.Sprintf("claimed %d, balance %d", res.Winnings, res.Profile.Balance)
			}
			return err
		}

	case "close-bet":
		if len(rest) != 1 {
			return "", fmt.Errorf("%s", compressedUsage)
		}
		eventID, err := parseEventID(rest[0])
		if err != nil {
			return "", err
		}
		plan = func(space address.Space) compressed.Plan {
			return compressed.PlanCloseBet(space, address.Bet(space, signer, eventID).Address, eventID)
		}
		fn = func(store interfaces.EntityStore) error {
			betAddr := address.Bet(store.Addresses(), signer, eventID).Address
			_, err := engine.CloseBet(ctx, store, signer, betAddr, eventID)
			result = fmt.Sprintf("bet on event %d closed", eventID)
			return err
		}

	default:
		return "", fmt.Errorf("unknown instruction %q\n%s", args[0], compressedUsage)
	}

	if err := runner.Run(ctx, plan, fn); err != nil {
		return "", err
	}
	return result, nil
}

func parseEventID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid event id %q: %w", s, err)
	}
	return id, nil
}

func parseOutcome(s string) (bool, error) {
	switch s {
	case "yes", "true":
		return true, nil
	case "no", "false":
		return false, nil
	}
	return false, fmt.Errorf("invalid outcome %q, want yes or no", s)
}
