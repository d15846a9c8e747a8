package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonStorageLoad ReasonCode = "storage_load"
	ReasonStorageSave ReasonCode = "storage_save"

	ReasonLLMGenerate    ReasonCode = "llm_generate"
	ReasonLLMRateLimit   ReasonCode = "llm_rate_limit"
	ReasonLLMCircuitOpen ReasonCode = "llm_circuit_open"

	ReasonBookingAvailability ReasonCode = "booking_availability"
	ReasonBookingCreate       ReasonCode = "booking_create"

	ReasonDeliverySend ReasonCode = "delivery_send"

	ReasonExternalTimeout ReasonCode = "external_timeout"
	ReasonEscalationLimit ReasonCode = "escalation_limit"
	ReasonStageViolation  ReasonCode = "stage_violation"
	ReasonEngineDraining  ReasonCode = "engine_draining"
)
