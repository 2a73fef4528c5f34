package domain

// AccountType is the registration-time classification persisted on the user
// record. Authorization checks downstream key off it.
type AccountType string

const (
	// AccountRequiresParent: under-13 child registration must be redirected
	// to a parent-initiated flow; no independent account is created.
	AccountRequiresParent AccountType = "REQUIRES_PARENT_ACCOUNT"
	// AccountMinorOptionalGuardian: 13-17 child; guardian linking optional.
	AccountMinorOptionalGuardian AccountType = "MINOR_OPTIONAL_GUARDIAN"
	// AccountAdult: 18+; no guardian features apply.
	AccountAdult AccountType = "ADULT"
	// AccountGuardian: declared parent role, regardless of age.
	AccountGuardian AccountType = "GUARDIAN"
)

func (t AccountType) String() string { return string(t) }
