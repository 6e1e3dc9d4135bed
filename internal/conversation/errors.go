package conversation

import "errors"

var (
	// ErrEmptyMessage is returned for blank chat input
	ErrEmptyMessage = errors.New("message is required and cannot be empty")

	// ErrMessageTooLong is returned when a message exceeds MaxMessageLength
	ErrMessageTooLong = errors.New("message is too long; please keep it under 1000 characters")

	// ErrInvalidStage is returned for an unknown conversation stage
	ErrInvalidStage = errors.New("invalid conversation stage")

	// ErrInvalidField is returned for an unknown qualification field name
	ErrInvalidField = errors.New("invalid qualification field")

	// ErrInvalidConversation is returned for malformed client-held state
	ErrInvalidConversation = errors.New("invalid conversation state")

	// ErrSessionNotFound is returned when a session has expired or never existed
	ErrSessionNotFound = errors.New("conversation session not found")
)
