package handler

// SetFieldRequest is the body of PUT /signup/sessions/{id}/fields/{field}.
type SetFieldRequest struct {
	Value string `json:"value"`
}
