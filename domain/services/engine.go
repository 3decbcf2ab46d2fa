package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"oraclequest/domain/address"
	"oraclequest/domain/codec"
	"oraclequest/domain/entities"
	"oraclequest/domain/interfaces"
	"oraclequest/events"

	log "github.com/sirupsen/logrus"
)

// Instruction names, used for logging and metrics
const (
	InstructionInitializePlayer = "initialize_player"
	InstructionCreateEvent      = "create_oracle_event"
	InstructionPlaceBet         = "place_bet"
	InstructionResolveEvent     = "resolve_event"
	InstructionClaimWinnings    = "claim_winnings"
	InstructionCloseBet         = "close_bet"
)

// Engine runs ledger transitions against any EntityStore. Each handler
// executes as one transition on the store it is given.
type Engine struct {
	observer interfaces.TransitionObserver
}

// NewEngine creates a new Engine. observer may be nil.
func NewEngine(observer interfaces.TransitionObserver) *Engine {
	return &Engine{observer: observer}
}

// ClaimResult is the outcome of a successful claim
type ClaimResult struct {
	Winnings uint64
	Bet      *entities.Bet
	Profile  *entities.PlayerProfile
}

// InitializePlayer creates the profile of signer
func (e *Engine) InitializePlayer(ctx context.Context, store interfaces.EntityStore, signer entities.AccountID) (*entities.PlayerProfile, error) {
	var profile *entities.PlayerProfile
	err := e.transition(ctx, store, InstructionInitializePlayer, func() error {
		if err := RequireSigner(signer); err != nil {
			return err
		}
		addr := address.Player(store.Addresses(), signer)
		profile = entities.NewPlayerProfile(signer)
		if err := store.Allocate(ctx, addr, profile, signer); err != nil {
			return conflictAs(err, entities.ErrAlreadyInitialized)
		}
		return store.EventBus().Publish(events.PlayerInitializedEvent{
			Regime:  store.Regime(),
			Owner:   signer,
			Address: addr.Address,
		})
	}, entities.ErrAlreadyInitialized)
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// CreateOracleEvent creates event eventID with authority as its resolver.
// Direct-regime events track tallies.
func (e *Engine) CreateOracleEvent(ctx context.Context, store interfaces.EntityStore, authority entities.AccountID, eventID uint64, description string) (*entities.OracleEvent, error) {
	if len(description) > codec.For(store.Regime()).MaxDescription() {
		e.observe(ctx, InstructionCreateEvent, store.Regime(), 0, entities.ErrDescriptionTooLong)
		return nil, entities.ErrDescriptionTooLong
	}

	var event *entities.OracleEvent
	err := e.transition(ctx, store, InstructionCreateEvent, func() error {
		if err := RequireSigner(authority); err != nil {
			return err
		}
		addr := address.Event(store.Addresses(), eventID)
		event = entities.NewOracleEvent(eventID, description, authority, store.Regime() == entities.RegimeDirect)
		if err := store.Allocate(ctx, addr, event, authority); err != nil {
			return conflictAs(err, entities.ErrEventAlreadyExists)
		}
		return store.EventBus().Publish(events.EventCreatedEvent{
			Regime:      store.Regime(),
			EventID:     eventID,
			Description: description,
			Authority:   authority,
		})
	}, entities.ErrEventAlreadyExists)
	if err != nil {
		return nil, err
	}
	return event, nil
}

// PlaceBet stakes amount on chosenOutcome of eventID for signer. Custody of
// the stake belongs to the surrounding ledger runtime.
func (e *Engine) PlaceBet(ctx context.Context, store interfaces.EntityStore, signer entities.AccountID, eventID uint64, chosenOutcome bool, amount uint64) (*entities.Bet, error) {
	var bet *entities.Bet
	err := e.transition(ctx, store, InstructionPlaceBet, func() error {
		space := store.Addresses()
		profileAddr := address.Player(space, signer).Address
		profile, err := readProfile(ctx, store, profileAddr)
		if err != nil {
			return err
		}
		if err := RequireProfileOwner(signer, profile); err != nil {
			return err
		}

		eventAddr := address.Event(space, eventID).Address
		event, err := readEvent(ctx, store, eventAddr)
		if err != nil {
			return err
		}
		if event.Resolved {
			return entities.ErrAlreadyResolved
		}

		bet = entities.NewBet(signer, eventID, chosenOutcome, amount)
		if err := store.Allocate(ctx, address.Bet(space, signer, eventID), bet, signer); err != nil {
			return conflictAs(err, entities.ErrDuplicateBet)
		}

		if err := profile.RecordBet(); err != nil {
			return err
		}
		if err := store.Write(ctx, profileAddr, profile); err != nil {
			return err
		}

		if event.Tallies != nil {
			if err := event.AddTally(chosenOutcome, amount); err != nil {
				return err
			}
			if err := store.Write(ctx, eventAddr, event); err != nil {
				return err
			}
		}

		return store.EventBus().Publish(events.BetPlacedEvent{
			Regime:        store.Regime(),
			Player:        signer,
			EventID:       eventID,
			ChosenOutcome: chosenOutcome,
			Amount:        amount,
		})
	}, entities.ErrDuplicateBet)
	if err != nil {
		return nil, err
	}
	return bet, nil
}

// ResolveEvent fixes the outcome of eventID. Only the event authority may
// resolve and only once.
func (e *Engine) ResolveEvent(ctx context.Context, store interfaces.EntityStore, authority entities.AccountID, eventID uint64, outcome bool) (*entities.OracleEvent, error) {
	var event *entities.OracleEvent
	err := e.transition(ctx, store, InstructionResolveEvent, func() error {
		eventAddr := address.Event(store.Addresses(), eventID).Address
		var err error
		event, err = readEvent(ctx, store, eventAddr)
		if err != nil {
			return err
		}
		if err := RequireAuthority(authority, event); err != nil {
			return err
		}
		if err := event.Resolve(outcome); err != nil {
			return err
		}
		if err := store.Write(ctx, eventAddr, event); err != nil {
			return err
		}
		return store.EventBus().Publish(events.EventResolvedEvent{
			Regime:    store.Regime(),
			EventID:   eventID,
			Outcome:   outcome,
			Authority: authority,
		})
	}, nil)
	if err != nil {
		return nil, err
	}
	return event, nil
}

// ClaimWinnings settles the winning bet at betAddr for signer, paying
// PayoutMultiplier times the stake into the signer's profile balance.
func (e *Engine) ClaimWinnings(ctx context.Context, store interfaces.EntityStore, signer entities.AccountID, betAddr entities.AccountID, eventID uint64) (*ClaimResult, error) {
	var result *ClaimResult
	err := e.transition(ctx, store, InstructionClaimWinnings, func() error {
		space := store.Addresses()
		bet, err := readBet(ctx, store, betAddr)
		if err != nil {
			return err
		}
		event, err := readEvent(ctx, store, address.Event(space, eventID).Address)
		if err != nil {
			return err
		}
		if err := RequireSameEvent(bet, event); err != nil {
			return err
		}
		winnings, err := CheckClaim(signer, bet, event)
		if err != nil {
			return err
		}

		profileAddr := address.Player(space, signer).Address
		profile, err := readProfile(ctx, store, profileAddr)
		if err != nil {
			return err
		}
		if err := profile.RecordWin(winnings); err != nil {
			return err
		}
		bet.Claimed = true

		if err := store.Write(ctx, betAddr, bet); err != nil {
			return err
		}
		if err := store.Write(ctx, profileAddr, profile); err != nil {
			return err
		}

		result = &ClaimResult{Winnings: winnings, Bet: bet, Profile: profile}
		return store.EventBus().Publish(events.WinningsClaimedEvent{
			Regime:     store.Regime(),
			Player:     signer,
			EventID:    eventID,
			Winnings:   winnings,
			NewBalance: profile.Balance,
		})
	}, nil)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CloseBet retires the settled bet at betAddr and returns the released
// storage allotment to signer. The refund is zero in the compressed regime.
func (e *Engine) CloseBet(ctx context.Context, store interfaces.EntityStore, signer entities.AccountID, betAddr entities.AccountID, eventID uint64) (uint64, error) {
	var refund uint64
	err := e.transition(ctx, store, InstructionCloseBet, func() error {
		bet, err := readBet(ctx, store, betAddr)
		if err != nil {
			return err
		}
		event, err := readEvent(ctx, store, address.Event(store.Addresses(), eventID).Address)
		if err != nil {
			return err
		}
		if err := RequireSameEvent(bet, event); err != nil {
			return err
		}
		if err := CheckClose(signer, bet, event); err != nil {
			return err
		}
		refund, err = store.Close(ctx, betAddr, signer)
		if err != nil {
			return err
		}
		return store.EventBus().Publish(events.BetClosedEvent{
			Regime:      store.Regime(),
			Player:      bet.Player,
			EventID:     eventID,
			Beneficiary: signer,
			Refund:      refund,
		})
	}, nil)
	if err != nil {
		return 0, err
	}
	return refund, nil
}

// transition runs fn inside one store transition. A commit that loses an
// allocation race is reported as conflict when conflict is set.
func (e *Engine) transition(ctx context.Context, store interfaces.EntityStore, instruction string, fn func() error, conflict error) (err error) {
	start := time.Now()
	defer func() {
		e.observe(ctx, instruction, store.Regime(), time.Since(start), err)
	}()

	if err := store.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin %s: %w", instruction, err)
	}
	defer store.Rollback() // No-op if already committed

	if err := fn(); err != nil {
		return err
	}

	if err := store.Commit(); err != nil {
		if conflict != nil {
			return conflictAs(err, conflict)
		}
		return err
	}
	return nil
}

func (e *Engine) observe(ctx context.Context, instruction string, regime entities.Regime, elapsed time.Duration, err error) {
	fields := log.Fields{
		"instruction": instruction,
		"regime":      regime,
		"elapsed":     elapsed,
	}
	var ledgerErr *entities.LedgerError
	switch {
	case err == nil:
		log.WithFields(fields).Info("Transition committed")
	case errors.As(err, &ledgerErr):
		fields["error"] = ledgerErr.Name
		fields["category"] = ledgerErr.Category
		log.WithFields(fields).Warn("Transition rejected")
	default:
		fields["error"] = err
		log.WithFields(fields).Error("Transition failed")
	}

	if e.observer != nil {
		e.observer.ObserveTransition(ctx, instruction, regime, elapsed, err)
	}
}

// conflictAs reports an occupied-address failure as the instruction specific condition
func conflictAs(err error, specific error) error {
	if errors.Is(err, entities.ErrAddressInUse) {
		return specific
	}
	return err
}

func readProfile(ctx context.Context, store interfaces.EntityStore, addr entities.AccountID) (*entities.PlayerProfile, error) {
	return readAs[*entities.PlayerProfile](ctx, store, addr, "player profile")
}

func readEvent(ctx context.Context, store interfaces.EntityStore, addr entities.AccountID) (*entities.OracleEvent, error) {
	return readAs[*entities.OracleEvent](ctx, store, addr, "oracle event")
}

func readBet(ctx context.Context, store interfaces.EntityStore, addr entities.AccountID) (*entities.Bet, error) {
	return readAs[*entities.Bet](ctx, store, addr, "bet")
}

func readAs[T entities.Entity](ctx context.Context, store interfaces.EntityStore, addr entities.AccountID, what string) (T, error) {
	var zero T
	entity, err := store.Read(ctx, addr)
	if errors.Is(err, entities.ErrNotFound) {
		return zero, fmt.Errorf("%s %s: %w", what, addr, entities.ErrNotInitialized)
	}
	if err != nil {
		return zero, fmt.Errorf("failed to read %s: %w", what, err)
	}
	v, ok := entity.(T)
	if !ok {
		return zero, fmt.Errorf("%s %s: %w", what, addr, entities.ErrDiscriminatorMismatch)
	}
	return v, nil
}
