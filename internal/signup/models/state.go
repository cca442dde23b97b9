package models

// CheckState tracks the uniqueness-check lifecycle of a session.
type CheckState string

const (
	CheckEditing     CheckState = "editing"
	CheckChecking    CheckState = "checking"
	CheckAvailable   CheckState = "checked_available"
	CheckUnavailable CheckState = "checked_unavailable"
)

// SubmitState tracks the commit lifecycle of a session.
type SubmitState string

const (
	SubmitReady      SubmitState = "ready"
	SubmitSubmitting SubmitState = "submitting"
	SubmitSucceeded  SubmitState = "succeeded"
	SubmitFailed     SubmitState = "failed"
)
