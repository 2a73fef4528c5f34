// Package accounts classifies registrants at signup time. The result is
// persisted on the user record by the registration flow and consulted by
// authorization checks later; nothing here holds state.
package accounts

import (
	"time"

	id "kindred/pkg/domain"
	dErrors "kindred/pkg/domain-errors"
)

// BirthdateLayout is the wire format for birthdates.
const BirthdateLayout = "2006-01-02"

// DeclaredRole is what the registrant claims to be.
type DeclaredRole string

const (
	DeclaredChild  DeclaredRole = "child"
	DeclaredParent DeclaredRole = "parent"
)

// Classification is the registration-time outcome.
type Classification struct {
	AccountType id.AccountType
	Age         int
}

// Classify determines the account type for a registrant.
//
// Rules:
//   - declared parent: GUARDIAN regardless of age
//   - child under 13: REQUIRES_PARENT_ACCOUNT (registration redirects to a
//     parent-initiated flow)
//   - child 13-17: MINOR_OPTIONAL_GUARDIAN
//   - 18 and over: ADULT
//
// Fails with invalid_input when the birthdate is unparsable or in the future.
func Classify(birthdate string, role DeclaredRole, now time.Time) (Classification, error) {
	if role != DeclaredChild && role != DeclaredParent {
		return Classification{}, dErrors.New(dErrors.CodeInvalidInput, "role must be 'child' or 'parent'")
	}

	born, err := time.Parse(BirthdateLayout, birthdate)
	if err != nil {
		return Classification{}, dErrors.New(dErrors.CodeInvalidInput, "birthdate must be YYYY-MM-DD")
	}
	if born.After(now) {
		return Classification{}, dErrors.New(dErrors.CodeInvalidInput, "birthdate cannot be in the future")
	}

	age := AgeAt(born, now)

	if role == DeclaredParent {
		return Classification{AccountType: id.AccountGuardian, Age: age}, nil
	}
	switch {
	case age < 13:
		return Classification{AccountType: id.AccountRequiresParent, Age: age}, nil
	case age < 18:
		return Classification{AccountType: id.AccountMinorOptionalGuardian, Age: age}, nil
	default:
		return Classification{AccountType: id.AccountAdult, Age: age}, nil
	}
}

// AgeAt computes age in whole years using calendar subtraction, not a
// 365-day approximation. The birthday itself counts as having turned.
func AgeAt(born, now time.Time) int {
	years := now.Year() - born.Year()
	// Not yet reached this year's birthday.
	if now.Month() < born.Month() ||
		(now.Month() == born.Month() && now.Day() < born.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
