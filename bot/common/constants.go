package common

// Embed colors
const (
	ColorOpenEvent     = 0x5865F2 // Discord blurple
	ColorResolvedEvent = 0x57F287
	ColorProfile       = 0x5865F2
	ColorBet           = 0x3498DB
	ColorPayout        = 0x57F287
)

// MinBetAmount is the smallest stake the /bet command offers
const MinBetAmount = 1
