package betting

import (
	"math"
	"testing"

	"oraclequest/bot/common"
	"oraclequest/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBetPlacedEmbed(t *testing.T) {
	owner := common.AccountFor("1")

	embed := betPlacedEmbed(entities.NewBet(owner, 7, true, 1500))
	assert.Contains(t, embed.Description, "1,500")
	assert.Contains(t, embed.Description, "Yes")
	require.NotNil(t, embed.Footer)
	assert.Equal(t, "Pays 3,000 if right", embed.Footer.Text)

	// A stake whose payout does not fit shows no payout line
	embed = betPlacedEmbed(entities.NewBet(owner, 7, false, math.MaxUint64))
	assert.Nil(t, embed.Footer)
}

func TestBetEmbed_WithoutEvent(t *testing.T) {
	bet := entities.NewBet(common.AccountFor("1"), 7, false, 10)
	embed := betEmbed(bet, nil)
	assert.Empty(t, embed.Description)
	assert.Equal(t, "Pending", embed.Fields[2].Value)
}
