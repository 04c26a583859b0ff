package domain

// DecisionKind enumerates the verdicts a human may deliver for a suspended
// session.
type DecisionKind string

const (
	DecisionApprove DecisionKind = "approve"
	DecisionReject  DecisionKind = "reject"
	DecisionEdit    DecisionKind = "edit"
)

// Valid reports whether the kind is one of the recognized verdicts.
func (k DecisionKind) Valid() bool {
	switch k {
	case DecisionApprove, DecisionReject, DecisionEdit:
		return true
	}
	return false
}

// Decision is a human verdict delivered out-of-band to a session suspended in
// waiting_for_approval.
type Decision struct {
	Kind DecisionKind `json:"decision" mapstructure:"decision"`
	// ModifiedQuery is the replacement query text; required exactly when Kind
	// is DecisionEdit.
	ModifiedQuery string `json:"modified_payload,omitempty" mapstructure:"modified_payload"`
}
