package metrics

// Event names emitted by the engine. Kept in one place so observers can
// match on them.
const (
	EventTurnProcessed     = "turn_processed"
	EventTurnDuplicate     = "turn_duplicate"
	EventFactExtracted     = "fact_extracted"
	EventScoreChanged      = "score_changed"
	EventStageChanged      = "stage_changed"
	EventAgentEscalated    = "agent_escalated"
	EventEscalationLimit   = "escalation_limit"
	EventReplyDegraded     = "reply_degraded"
	EventReplyReplaced     = "reply_replaced"
	EventSlotsOffered      = "slots_offered"
	EventAppointmentBooked = "appointment_booked"

	EventRateLimit     = "rate_limit"
	EventBreakerOpen   = "breaker_open"
	EventBreakerClose  = "breaker_close"
	EventBreakerDenied = "breaker_denied"
)
