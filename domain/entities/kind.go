package entities

// Regime selects how entities are stored and addressed
type Regime string

const (
	// RegimeDirect stores each entity as its own deterministically addressed record
	RegimeDirect Regime = "direct"
	// RegimeCompressed stores entities as leaves of a shared commitment tree
	RegimeCompressed Regime = "compressed"
)

// Kind identifies an entity type
type Kind uint8

const (
	KindPlayerProfile Kind = iota + 1
	KindOracleEvent
	KindBet
)

// Entity is implemented by every ledger entity
type Entity interface {
	Kind() Kind
}

// TypeName is the name hashed into the account discriminator
func (k Kind) TypeName() string {
	switch k {
	case KindPlayerProfile:
		return "PlayerProfile"
	case KindOracleEvent:
		return "OracleEvent"
	case KindBet:
		return "Bet"
	default:
		return "Unknown"
	}
}

// SeedTag is the domain tag used when deriving addresses for this kind
func (k Kind) SeedTag() string {
	switch k {
	case KindPlayerProfile:
		return "player"
	case KindOracleEvent:
		return "event"
	case KindBet:
		return "bet"
	default:
		return ""
	}
}

func (k Kind) String() string {
	return k.TypeName()
}

// IsValid reports whether k names a known entity kind
func (k Kind) IsValid() bool {
	return k >= KindPlayerProfile && k <= KindBet
}
