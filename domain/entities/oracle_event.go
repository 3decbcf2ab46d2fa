package entities

// Description length limits per regime
const (
	MaxDescriptionLenDirect     = 200
	MaxDescriptionLenCompressed = 100
)

// EventState is the lifecycle state of an oracle event
type EventState string

const (
	EventStateOpen     EventState = "open"
	EventStateResolved EventState = "resolved"
)

// Tallies are the aggregate counters kept by direct-regime events
type Tallies struct {
	TotalBets   uint64 `db:"total_bets"`
	YesVotes    uint64 `db:"yes_votes"`
	NoVotes     uint64 `db:"no_votes"`
	TotalAmount uint64 `db:"total_amount"`
}

// OracleEvent is a binary question resolved by its authority
type OracleEvent struct {
	EventID     uint64    `db:"event_id"`
	Description string    `db:"description"`
	Resolved    bool      `db:"resolved"`
	Outcome     *bool     `db:"outcome"`
	Authority   AccountID `db:"authority"`
	Tallies     *Tallies  `db:"-"`
}

// NewOracleEvent returns an open event. Tallies are tracked only when withTallies is set.
func NewOracleEvent(eventID uint64, description string, authority AccountID, withTallies bool) *OracleEvent {
	e := &OracleEvent{
		EventID:     eventID,
		Description: description,
		Authority:   authority,
	}
	if withTallies {
		e.Tallies = &Tallies{}
	}
	return e
}

func (e *OracleEvent) Kind() Kind { return KindOracleEvent }

// State derives the lifecycle state from the resolved flag
func (e *OracleEvent) State() EventState {
	if e.Resolved {
		return EventStateResolved
	}
	return EventStateOpen
}

// Resolve fixes the outcome. It can succeed only once.
func (e *OracleEvent) Resolve(outcome bool) error {
	if e.Resolved {
		return ErrAlreadyResolved
	}
	e.Resolved = true
	e.Outcome = &outcome
	return nil
}

// AddTally folds a new bet into the aggregate counters. Events without
// tallies are left as they are. Nothing changes if any counter would overflow.
func (e *OracleEvent) AddTally(chosenOutcome bool, amount uint64) error {
	if e.Tallies == nil {
		return nil
	}
	t := *e.Tallies
	var ok bool
	if t.TotalBets, ok = addUint64(t.TotalBets, 1); !ok {
		return ErrTallyOverflow
	}
	if t.TotalAmount, ok = addUint64(t.TotalAmount, amount); !ok {
		return ErrTallyOverflow
	}
	if chosenOutcome {
		t.YesVotes, ok = addUint64(t.YesVotes, 1)
	} else {
		t.NoVotes, ok = addUint64(t.NoVotes, 1)
	}
	if !ok {
		return ErrTallyOverflow
	}
	*e.Tallies = t
	return nil
}

// IsWinningOutcome reports whether choice matches the resolved outcome
func (e *OracleEvent) IsWinningOutcome(choice bool) bool {
	return e.Resolved && e.Outcome != nil && *e.Outcome == choice
}

// Clone returns a deep copy
func (e *OracleEvent) Clone() *OracleEvent {
	c := *e
	if e.Outcome != nil {
		o := *e.Outcome
		c.Outcome = &o
	}
	if e.Tallies != nil {
		t := *e.Tallies
		c.Tallies = &t
	}
	return &c
}
