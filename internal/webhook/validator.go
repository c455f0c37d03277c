package webhook

import "crypto/subtle"

// Validator checks presented webhook secret tokens against the configured
// reference token.
type Validator struct {
	secret []byte
}

func NewValidator(secret string) *Validator {
	return &Validator{secret: []byte(secret)}
}

// IsValid reports whether the presented token matches the reference token.
// Fails closed: with no reference token configured every presented token is
// rejected. The comparison runs in constant time with respect to the token
// content so response timing leaks nothing about the secret.
func (v *Validator) IsValid(presented string) bool {
	if len(v.secret) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(v.secret, []byte(presented)) == 1
}
