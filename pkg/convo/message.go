package convo

import "time"

// Role tags who produced a message in the conversation history.
type Role string

const (
	RoleHuman  Role = "human"
	RoleAgent  Role = "agent"
	RoleSystem Role = "system"
)

// Message is one turn entry in a conversation history.
type Message struct {
	ID        string    `json:"id,omitempty"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// System marker names recorded in the history by the pipeline. The stage
// tracker reads them to tell the appointment sub-stages apart.
const (
	MarkerSlotsOffered      = "slots_offered"
	MarkerAppointmentBooked = "appointment_booked"
	MarkerHumanHandoff      = "human_handoff"
)

// NewHumanMessage builds a history entry for an inbound lead message.
func NewHumanMessage(id, text string, ts time.Time) Message {
	return Message{ID: id, Role: RoleHuman, Text: text, Timestamp: ts}
}

// NewAgentMessage builds a history entry for an outbound agent reply.
func NewAgentMessage(id, text string, ts time.Time) Message {
	return Message{ID: id, Role: RoleAgent, Text: text, Timestamp: ts}
}

// NewSystemMessage builds a marker entry (tool outcomes, handoffs).
func NewSystemMessage(name, text string, ts time.Time) Message {
	return Message{ID: name, Role: RoleSystem, Text: text, Timestamp: ts}
}

// LastAgentText returns the most recent agent message text, or "".
func LastAgentText(history []Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleAgent {
			return history[i].Text
		}
	}
	return ""
}

// LastHumanText returns the most recent human message text, or "".
func LastHumanText(history []Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleHuman {
			return history[i].Text
		}
	}
	return ""
}

// HasSystemMarker reports whether a marker entry with the given name exists.
func HasSystemMarker(history []Message, name string) bool {
	_, ok := SystemMarkerText(history, name)
	return ok
}

// SystemMarkerText returns the text of the most recent marker entry with the
// given name.
func SystemMarkerText(history []Message, name string) (string, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleSystem && history[i].ID == name {
			return history[i].Text, true
		}
	}
	return "", false
}
