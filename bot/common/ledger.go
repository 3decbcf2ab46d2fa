package common

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strconv"

	"oraclequest/domain/address"
	"oraclequest/domain/entities"
	"oraclequest/domain/interfaces"
	"oraclequest/domain/services"

	"github.com/bwmarrin/discordgo"
)

// Ledger is what features need to run and inspect direct-regime transitions
type Ledger struct {
	Engine      *services.Engine
	Stores      interfaces.StoreFactory
	Reader      interfaces.LedgerReader
	Space       address.Space
	IsAuthority func(discordID int64) bool
}

// AccountFor maps a Discord user to the account that signs for them
func AccountFor(discordUserID string) entities.AccountID {
	return entities.AccountID(sha256.Sum256([]byte("discord:" + discordUserID)))
}

// InteractionUserID returns the invoking user in guilds and DMs alike
func InteractionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// Signer is the account of the invoking user
func Signer(i *discordgo.InteractionCreate) entities.AccountID {
	return AccountFor(InteractionUserID(i))
}

// CanManageEvents reports whether the invoking user may create events
func (l *Ledger) CanManageEvents(i *discordgo.InteractionCreate) bool {
	if l.IsAuthority == nil {
		return false
	}
	id, err := strconv.ParseInt(InteractionUserID(i), 10, 64)
	if err != nil {
		return false
	}
	return l.IsAuthority(id)
}

// Profile reads the committed profile of owner
func (l *Ledger) Profile(ctx context.Context, owner entities.AccountID) (*entities.PlayerProfile, error) {
	return get[*entities.PlayerProfile](ctx, l.Reader, address.Player(l.Space, owner).Address)
}

// Event reads the committed event eventID
func (l *Ledger) Event(ctx context.Context, eventID uint64) (*entities.OracleEvent, error) {
	return get[*entities.OracleEvent](ctx, l.Reader, address.Event(l.Space, eventID).Address)
}

// BetAddress locates the bet of owner on eventID
func (l *Ledger) BetAddress(owner entities.AccountID, eventID uint64) entities.AccountID {
	return address.Bet(l.Space, owner, eventID).Address
}

// Bet reads the committed bet of owner on eventID
func (l *Ledger) Bet(ctx context.Context, owner entities.AccountID, eventID uint64) (*entities.Bet, error) {
	return get[*entities.Bet](ctx, l.Reader, l.BetAddress(owner, eventID))
}

func get[T entities.Entity](ctx context.Context, reader interfaces.LedgerReader, addr entities.AccountID) (T, error) {
	var zero T
	e, err := reader.Get(ctx, addr)
	if err != nil {
		return zero, err
	}
	typed, ok := e.(T)
	if !ok {
		return zero, fmt.Errorf("record %s: %w", addr, entities.ErrDiscriminatorMismatch)
	}
	return typed, nil
}

// Options indexes the options of the invoked subcommand by name
func Options(i *discordgo.InteractionCreate) (string, map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	data := i.ApplicationCommandData()
	opts := make(map[string]*discordgo.ApplicationCommandInteractionDataOption)
	if len(data.Options) == 0 {
		return "", opts
	}

	sub := data.Options[0]
	if sub.Type != discordgo.ApplicationCommandOptionSubCommand {
		for _, o := range data.Options {
			opts[o.Name] = o
		}
		return "", opts
	}
	for _, o := range sub.Options {
		opts[o.Name] = o
	}
	return sub.Name, opts
}

// UintOption reads a non-negative integer option
func UintOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) (uint64, error) {
	o, ok := opts[name]
	if !ok || o == nil {
		return 0, NewUserError(fmt.Sprintf("Missing option `%s`.", name), "missing option "+name)
	}
	v := o.IntValue()
	if v < 0 {
		return 0, NewUserError(fmt.Sprintf("`%s` must not be negative.", name), "negative option "+name)
	}
	return uint64(v), nil
}

// BoolOption reads a required boolean option
func BoolOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) (bool, error) {
	o, ok := opts[name]
	if !ok || o == nil {
		return false, NewUserError(fmt.Sprintf("Missing option `%s`.", name), "missing option "+name)
	}
	return o.BoolValue(), nil
}
