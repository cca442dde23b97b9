package models

// Field-scoped messages shown to the user.
const (
	MsgNameRequired       = "name is required"
	MsgIdentifierRequired = "identifier is required"
	MsgIdentifierTaken    = "identifier is already in use, choose another"
	MsgIdentifierFree     = "identifier is available"
	MsgCheckFailed        = "could not check identifier, try again"
	MsgMustCheck          = "check the identifier for uniqueness first"
	MsgPasswordRequired   = "password is required"
	MsgConfirmRequired    = "password confirmation is required"
	MsgPasswordMismatch   = "passwords do not match"
	MsgRegisterFailed     = "registration failed, try again"
	MsgSubmitInProgress   = "registration already in progress"
)

// MessageKind selects the styling of a field message.
type MessageKind string

const (
	MessageError   MessageKind = "error"
	MessageSuccess MessageKind = "success"
)

// Message is a single field annotation.
type Message struct {
	Text string      `json:"text"`
	Kind MessageKind `json:"kind"`
}

// IsZero reports whether the message is empty.
func (m Message) IsZero() bool {
	return m.Text == ""
}
