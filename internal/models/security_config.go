package models

// SecurityConfig is the persisted process-wide security configuration.
// Salt is hex-encoded and present iff UsePasscode is true.
type SecurityConfig struct {
	Enabled         bool   `json:"enabled"`
	UsePasscode     bool   `json:"usePasscode"`
	UseBiometric    bool   `json:"useBiometric"`
	AutoLockMinutes int    `json:"autoLockMinutes"`
	Salt            string `json:"salt,omitempty"`
}

// DefaultSecurityConfig returns the first-run configuration with
// security disabled.
func DefaultSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		Enabled:         false,
		UsePasscode:     false,
		UseBiometric:    false,
		AutoLockMinutes: 0,
	}
}

// SecurityActive reports whether any authentication factor is in force.
func (c *SecurityConfig) SecurityActive() bool {
	return c.Enabled && (c.UsePasscode || c.UseBiometric)
}
