package bot

import (
	"fmt"

	"oraclequest/bot/common"
	"oraclequest/bot/features/betting"
	"oraclequest/bot/features/oracle"
	"oraclequest/bot/features/profile"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// Config holds bot configuration
type Config struct {
	Token   string
	GuildID string
}

// Feature is one slash command and its handler
type Feature interface {
	Command() *discordgo.ApplicationCommand
	HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate)
}

type Bot struct {
	config   Config
	session  *discordgo.Session
	features map[string]Feature
}

// New connects to Discord and registers the ledger commands
func New(config Config, ledger *common.Ledger) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds

	bot := &Bot{
		config:   config,
		session:  dg,
		features: Features(ledger),
	}

	dg.AddHandler(bot.handleCommands)

	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	if err := bot.registerCommands(); err != nil {
		dg.Close()
		return nil, fmt.Errorf("error registering commands: %w", err)
	}

	return bot, nil
}

// Features builds every command feature keyed by command name
func Features(ledger *common.Ledger) map[string]Feature {
	features := make(map[string]Feature)
	for _, f := range []Feature{
		profile.New(ledger),
		oracle.New(ledger),
		betting.New(ledger),
	} {
		features[f.Command().Name] = f
	}
	return features
}

func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) handleCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	name := i.ApplicationCommandData().Name
	f, ok := b.features[name]
	if !ok {
		log.WithField("command", name).Warn("Unknown command")
		return
	}
	f.HandleCommand(s, i)
}
