package observability

// Metric name prefixes
const (
	MetricPrefix = "lottoengine"
)

// Metric names
const (
	// Claim metrics
	ClaimsTotal   = MetricPrefix + ".claims.total"
	ClaimDuration = MetricPrefix + ".claims.duration"

	// Draw metrics
	DrawsExecutedTotal = MetricPrefix + ".draws.executed_total"
	DrawsSettledTotal  = MetricPrefix + ".draws.settled_total"
	PrizeAwardsTotal   = MetricPrefix + ".draws.prize_awards_total"

	// Ticket metrics
	TicketsIssuedTotal = MetricPrefix + ".tickets.issued_total"

	// NATS metrics
	EventsPublishedTotal = MetricPrefix + ".nats.events_published_total"
)

// Label keys
const (
	LabelOutcome   = "outcome"
	LabelEventType = "event_type"
	LabelGameCode  = "game_code"
	LabelIssuedBy  = "issued_by"
)

// Claim outcomes besides error codes
const (
	ClaimOutcomeClaimed  = "claimed"
	ClaimOutcomeReplayed = "replayed"
	ClaimOutcomeTimeout  = "timeout"
	ClaimOutcomeError    = "error"
)
