// Package form holds the mutable registration form state.
//
// A Form is owned by exactly one session and is not safe for concurrent use;
// the orchestrator serializes access to it.
package form

import "signup/internal/signup/models"

// Form is the single source of truth for field values and their messages.
type Form struct {
	values    map[models.Field]string
	messages  map[models.Field]models.Message
	checked   bool
	available bool
}

// New returns a form with every field empty.
func New() *Form {
	return &Form{
		values:   make(map[models.Field]string, len(models.Fields)),
		messages: make(map[models.Field]models.Message, len(models.Fields)),
	}
}

// Set overwrites a field value and clears that field's message. Editing the
// identifier also drops the checked and available flags.
func (f *Form) Set(field models.Field, value string) {
	f.values[field] = value
	delete(f.messages, field)
	if field == models.FieldIdentifier {
		f.checked = false
		f.available = false
	}
}

// SetError annotates one field with an error-styled message.
func (f *Form) SetError(field models.Field, text string) {
	f.messages[field] = models.Message{Text: text, Kind: models.MessageError}
}

// SetNotice annotates one field with a success-styled message.
func (f *Form) SetNotice(field models.Field, text string) {
	f.messages[field] = models.Message{Text: text, Kind: models.MessageSuccess}
}

// ClearMessages drops every field message but keeps values.
func (f *Form) ClearMessages() {
	clear(f.messages)
}

// MarkChecked records the outcome of a uniqueness check for the current identifier.
func (f *Form) MarkChecked(available bool) {
	f.checked = available
	f.available = available
}

// Reset clears values, messages and flags.
func (f *Form) Reset() {
	clear(f.values)
	clear(f.messages)
	f.checked = false
	f.available = false
}

func (f *Form) Value(field models.Field) string {
	return f.values[field]
}

func (f *Form) Message(field models.Field) models.Message {
	return f.messages[field]
}

// Checked reports whether the current identifier passed a uniqueness check.
func (f *Form) Checked() bool {
	return f.checked
}

// Available drives the success styling of the identifier message.
func (f *Form) Available() bool {
	return f.available
}

// Snapshot is a read-only copy of the form for presentation.
type Snapshot struct {
	Values    map[models.Field]string
	Messages  map[models.Field]models.Message
	// Checked is false for a taken identifier as well as an unchecked one.
	Checked   bool
	Available bool
}

// Snapshot copies the current state.
func (f *Form) Snapshot() Snapshot {
	s := Snapshot{
		Values:    make(map[models.Field]string, len(models.Fields)),
		Messages:  make(map[models.Field]models.Message, len(f.messages)),
		Checked:   f.checked,
		Available: f.available,
	}
	for _, field := range models.Fields {
		s.Values[field] = f.values[field]
	}
	for field, msg := range f.messages {
		s.Messages[field] = msg
	}
	return s
}

// Empty reports whether every value and message is cleared.
func (s Snapshot) Empty() bool {
	for _, v := range s.Values {
		if v != "" {
			return false
		}
	}
	return len(s.Messages) == 0
}
