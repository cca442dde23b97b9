package handler

import (
	"signup/internal/signup/models"
	"signup/internal/signup/orchestrator"
)

// OpenResponse is the HTTP response for POST /signup/sessions.
type OpenResponse struct {
	SessionID string `json:"session_id"`
}

// RegisteredResponse is the HTTP response for a successful submit.
type RegisteredResponse struct {
	Registered bool   `json:"registered"`
	Identifier string `json:"identifier"`
}

// ViewResponse is the form as the screen renders it. Password values are never
// echoed back.
type ViewResponse struct {
	SessionID        string                     `json:"session_id"`
	Fields           FieldsResponse             `json:"fields"`
	Messages         map[string]MessageResponse `json:"messages"`
	Identifier       IdentifierStatus           `json:"identifier_status"`
	SubmitState      string                     `json:"submit_state"`
	Error            string                     `json:"error,omitempty"`
	ErrorDescription string                     `json:"error_description,omitempty"`
}

type FieldsResponse struct {
	Name        string `json:"name"`
	Identifier  string `json:"identifier"`
	PasswordSet bool   `json:"password_set"`
	ConfirmSet  bool   `json:"confirm_set"`
}

type MessageResponse struct {
	Text string `json:"text"`
	Kind string `json:"kind"`
}

// IdentifierStatus reports the uniqueness check. Checked is set only when the
// current identifier passed; State distinguishes taken from never checked.
type IdentifierStatus struct {
	State     string `json:"state"`
	Checked   bool   `json:"checked"`
	Available bool   `json:"available"`
}

// FromView converts an orchestrator view to its HTTP representation.
func FromView(sessionID string, v orchestrator.View) *ViewResponse {
	messages := make(map[string]MessageResponse, len(v.Form.Messages))
	for field, msg := range v.Form.Messages {
		messages[string(field)] = MessageResponse{Text: msg.Text, Kind: string(msg.Kind)}
	}
	return &ViewResponse{
		SessionID: sessionID,
		Fields: FieldsResponse{
			Name:        v.Form.Values[models.FieldName],
			Identifier:  v.Form.Values[models.FieldIdentifier],
			PasswordSet: v.Form.Values[models.FieldPassword] != "",
			ConfirmSet:  v.Form.Values[models.FieldConfirmPassword] != "",
		},
		Messages: messages,
		Identifier: IdentifierStatus{
			State:     string(v.CheckState),
			Checked:   v.Form.Checked,
			Available: v.Form.Available,
		},
		SubmitState: string(v.SubmitState),
	}
}
