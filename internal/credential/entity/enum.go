package entity

import "strings"

type Purpose string

const (
	PurposeSignupVerification Purpose = "signup-verification"
	PurposePasswordReset      Purpose = "password-reset"
	PurposeLogin2FA           Purpose = "login-2fa"
	PurposeEmailChange        Purpose = "email-change"
)

func (p Purpose) String() string {
	return string(p)
}

func (p Purpose) IsKnown() bool {
	switch p {
	case PurposeSignupVerification, PurposePasswordReset, PurposeLogin2FA, PurposeEmailChange:
		return true
	default:
		return false
	}
}

// ParsePurpose normalises raw input. Unknown values are returned as-is so the
// validator can reject them with a field error.
func ParsePurpose(raw string) Purpose {
	return Purpose(strings.ToLower(strings.TrimSpace(raw)))
}
