package observability

// Metric name prefixes
const (
	MetricPrefix = "oraclequest"
)

// Metric names
const (
	// Engine metrics
	TransitionsTotal   = MetricPrefix + ".transitions.total"
	TransitionDuration = MetricPrefix + ".transitions.duration"

	// Compressed store metrics
	TreeBatchAccounts = MetricPrefix + ".tree.batch_accounts"

	// NATS metrics
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"
)

// Label keys
const (
	LabelInstruction = "instruction"
	LabelRegime      = "regime"
	LabelOutcome     = "outcome"
	LabelErrorName   = "error_name"
	LabelCategory    = "category"
	LabelRole        = "role"
	LabelEventType   = "event_type"
)

// Outcomes
const (
	OutcomeCommitted = "committed"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Batch account roles
const (
	RoleNewAddress = "new_address"
	RoleInput      = "input"
	RoleReadOnly   = "read_only"
	RoleOutput     = "output"
)
