package profile

import (
	"testing"

	"oraclequest/bot/common"
	"oraclequest/domain/entities"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileEmbed(t *testing.T) {
	p := entities.NewPlayerProfile(common.AccountFor("1"))
	p.Balance = 1200
	p.TotalBets = 4
	p.BetsWon = 1

	member := &discordgo.Member{User: &discordgo.User{Username: "alice"}}
	embed := profileEmbed(member, p)
	assert.Equal(t, "alice's Profile", embed.Title)
	require.Len(t, embed.Fields, 3)
	assert.Equal(t, "1,200", embed.Fields[0].Value)
	assert.Equal(t, "1 (25.0%)", embed.Fields[2].Value)
}

func TestProfileEmbed_NoBets(t *testing.T) {
	embed := profileEmbed(nil, entities.NewPlayerProfile(common.AccountFor("1")))
	assert.Equal(t, "Player Profile", embed.Title)
	assert.Equal(t, "0 (n/a)", embed.Fields[2].Value)
}
