package security

// ConfirmRequest is what the confirmation gate shows the operator.
type ConfirmRequest struct {
	// Kind is the action kind recorded with the gate's audit entry.
	Kind    string
	Subject string
	Reason  string
}
