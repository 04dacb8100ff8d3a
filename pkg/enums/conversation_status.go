package enums

import "fmt"

// ConversationStatus tracks the lifecycle of a customer conversation.
type ConversationStatus string

const (
	ConversationStatusOpen       ConversationStatus = "OPEN"
	ConversationStatusInProgress ConversationStatus = "IN_PROGRESS"
	ConversationStatusCompleted  ConversationStatus = "COMPLETED"
	ConversationStatusCancelled  ConversationStatus = "CANCELLED"
)

var validConversationStatuses = []ConversationStatus{
	ConversationStatusOpen,
	ConversationStatusInProgress,
	ConversationStatusCompleted,
	ConversationStatusCancelled,
}

// String implements fmt.Stringer.
func (c ConversationStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ConversationStatus.
func (c ConversationStatus) IsValid() bool {
	for _, candidate := range validConversationStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are permitted.
func (c ConversationStatus) IsTerminal() bool {
	return c == ConversationStatusCompleted || c == ConversationStatusCancelled
}

// ParseConversationStatus converts raw input into a ConversationStatus.
func ParseConversationStatus(value string) (ConversationStatus, error) {
	for _, candidate := range validConversationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid conversation status %q", value)
}
