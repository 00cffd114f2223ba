// Package security implements the key lifecycle and authentication
// state machine: passcode-derived key wrapping, biometric-gated key
// release, lock state and idle auto-lock.
package security

// Biometric is the platform biometric facility. The core only
// consults it; platform bindings implement it.
type Biometric interface {
	// Available reports whether the platform has a biometric
	// capability.
	Available() bool

	// Prompt runs the platform biometric prompt. A non-nil error
	// covers both failure and user cancellation.
	Prompt(reason string) error
}
