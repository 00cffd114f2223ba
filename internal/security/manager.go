package security

import (
	"encoding/hex"
	"sync"
	"time"

	"github.com/simnote/core/internal/crypto"
	"github.com/simnote/core/internal/crypto/keystore"
	apperrors "github.com/simnote/core/internal/errors"
	"github.com/simnote/core/internal/logging"
	"github.com/simnote/core/internal/models"
)

// Protected-storage blob names.
const (
	blobWrappedMaster = "wrapped_master_key"
	blobVerifier      = "passcode_verifier"
	blobBiometricKey  = "biometric_unlock_key"
)

// MinPasscodeLen is the minimum accepted passcode length.
const MinPasscodeLen = 4

// State is the authentication state.
type State int

const (
	// StateUninitialized means no authentication factor is
	// configured; operations proceed without a master key.
	StateUninitialized State = iota
	// StateLocked means security is configured and the master key
	// is not in memory.
	StateLocked
	// StateUnlocked means the plaintext master key is held in
	// memory.
	StateUnlocked
)

func (s State) String() string {
	switch s {
	case StateLocked:
		return "locked"
	case StateUnlocked:
		return "unlocked"
	default:
		return "uninitialized"
	}
}

// Manager owns the master key for the duration of the Unlocked state.
// The key exists only in memory, is wiped on every lock transition,
// and is never persisted or logged in plaintext.
type Manager struct {
	mu        sync.Mutex
	cfg       *models.SecurityConfig
	cfgPath   string
	store     keystore.Store
	biometric Biometric
	log       *logging.Logger

	masterKey []byte

	idleTimer *time.Timer
	// testLockDelay overrides the minute-based auto-lock delay in
	// tests.
	testLockDelay time.Duration
}

// NewManager loads the persisted security configuration from dataDir
// and returns a manager in the Locked state (or Uninitialized when no
// factor is configured).
func NewManager(dataDir string, store keystore.Store, biometric Biometric, log *logging.Logger) (*Manager, error) {
	if store == nil {
		return nil, apperrors.New(apperrors.ErrUnavailable, "protected storage is required")
	}
	if log == nil {
		log = logging.Get()
	}
	path := configPath(dataDir)
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, err
	}
	return &Manager{
		cfg:       cfg,
		cfgPath:   path,
		store:     store,
		biometric: biometric,
		log:       log,
	}, nil
}

// State returns the current authentication state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Manager) stateLocked() State {
	if !m.cfg.SecurityActive() {
		return StateUninitialized
	}
	if m.masterKey != nil {
		return StateUnlocked
	}
	return StateLocked
}

// IsSecurityEnabled reports whether any authentication factor is in
// force.
func (m *Manager) IsSecurityEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.SecurityActive()
}

// IsUnlocked reports whether protected operations may proceed. With
// security disabled this is always true.
func (m *Manager) IsUnlocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.cfg.SecurityActive() || m.masterKey != nil
}

// Config returns a copy of the current security configuration.
func (m *Manager) Config() models.SecurityConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.cfg
}

// SetupPasscode configures (or resets) passcode protection. A fresh
// salt and a fresh master key are generated; the master key is wrapped
// under the passcode-derived key and only the wrapped copy is
// persisted. The manager ends Unlocked.
func (m *Manager) SetupPasscode(passcode string) error {
	if len(passcode) < MinPasscodeLen {
		return apperrors.New(apperrors.ErrValidation, "passcode too short")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	salt, err := crypto.NewSalt()
	if err != nil {
		return err
	}
	master, err := crypto.NewMasterKey()
	if err != nil {
		return err
	}
	wrapKey := crypto.DeriveKey(passcode, salt)
	defer crypto.Zero(wrapKey)

	wrapped, err := crypto.Encrypt(master, wrapKey)
	if err != nil {
		return err
	}
	if err := m.store.Set(blobWrappedMaster, []byte(wrapped)); err != nil {
		return err
	}
	if err := m.store.Set(blobVerifier, crypto.MakeVerifier(wrapKey)); err != nil {
		return err
	}
	// Re-setup invalidates any previous biometric material.
	if err := m.store.Delete(blobBiometricKey); err != nil {
		return err
	}

	cfg := *m.cfg
	cfg.Enabled = true
	cfg.UsePasscode = true
	cfg.UseBiometric = false
	cfg.Salt = hex.EncodeToString(salt)
	if err := saveConfig(m.cfgPath, &cfg); err != nil {
		return err
	}
	m.cfg = &cfg

	m.setMasterKeyLocked(master)
	m.log.Info("passcode protection configured")
	return nil
}

// AuthenticateWithPasscode verifies the passcode, unwraps the master
// key and transitions to Unlocked. When biometric unlock is enabled
// the freshly derived wrapping key is stored so a later biometric
// unlock can reuse it.
func (m *Manager) AuthenticateWithPasscode(passcode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wrapKey, err := m.verifyPasscodeLocked(passcode)
	if err != nil {
		return err
	}
	defer crypto.Zero(wrapKey)

	master, err := m.unwrapMasterLocked(wrapKey)
	if err != nil {
		return err
	}

	if m.cfg.UseBiometric {
		if err := m.store.Set(blobBiometricKey, wrapKey); err != nil {
			m.log.Warn("failed to refresh biometric key material")
		}
	}

	m.setMasterKeyLocked(master)
	m.log.Info("unlocked with passcode")
	return nil
}

// verifyPasscodeLocked derives the wrapping key for passcode and
// checks it against the stored verifier. The failure message is
// deliberately generic.
func (m *Manager) verifyPasscodeLocked(passcode string) ([]byte, error) {
	if !m.cfg.UsePasscode || m.cfg.Salt == "" {
		return nil, apperrors.New(apperrors.ErrAuth, "authentication failed")
	}
	salt, err := hex.DecodeString(m.cfg.Salt)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrAuth, "authentication failed")
	}
	verifier, err := m.store.Get(blobVerifier)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrAuth, "authentication failed")
	}
	wrapKey := crypto.DeriveKey(passcode, salt)
	if !crypto.VerifierMatches(verifier, crypto.MakeVerifier(wrapKey)) {
		crypto.Zero(wrapKey)
		return nil, apperrors.New(apperrors.ErrAuth, "authentication failed")
	}
	return wrapKey, nil
}

func (m *Manager) unwrapMasterLocked(wrapKey []byte) ([]byte, error) {
	wrapped, err := m.store.Get(blobWrappedMaster)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrAuth, "authentication failed")
	}
	master, err := crypto.Decrypt(string(wrapped), wrapKey)
	if err != nil {
		// Wrapped blob exists but will not open: corrupted store.
		return nil, err
	}
	return master, nil
}

// EnableBiometric turns on biometric unlock. Biometric unlock is
// always passcode-backed: it requires a configured passcode and a
// platform capability. The derived key material that backs it is
// stored on the next successful passcode authentication.
func (m *Manager) EnableBiometric() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.biometric == nil || !m.biometric.Available() {
		return apperrors.New(apperrors.ErrUnavailable, "biometric authentication unavailable")
	}
	if !m.cfg.UsePasscode {
		return apperrors.New(apperrors.ErrPrecondition, "a passcode must be configured first")
	}

	cfg := *m.cfg
	cfg.UseBiometric = true
	if err := saveConfig(m.cfgPath, &cfg); err != nil {
		return err
	}
	m.cfg = &cfg
	m.log.Info("biometric unlock enabled")
	return nil
}

// DisableBiometric turns off biometric unlock and invalidates the
// stored derived-key material.
func (m *Manager) DisableBiometric() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Delete(blobBiometricKey); err != nil {
		return err
	}
	cfg := *m.cfg
	cfg.UseBiometric = false
	if err := saveConfig(m.cfgPath, &cfg); err != nil {
		return err
	}
	m.cfg = &cfg
	m.log.Info("biometric unlock disabled")
	return nil
}

// AuthenticateWithBiometric releases the master key behind the
// platform biometric prompt, using the derived key stored at the last
// passcode authentication. Missing material means the caller must
// fall back to the passcode.
func (m *Manager) AuthenticateWithBiometric() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.cfg.UseBiometric {
		return apperrors.New(apperrors.ErrAuth, "authentication failed")
	}
	wrapKey, err := m.store.Get(blobBiometricKey)
	if err != nil {
		return apperrors.New(apperrors.ErrAuth, "authentication failed")
	}
	defer crypto.Zero(wrapKey)

	if m.biometric == nil {
		return apperrors.New(apperrors.ErrAuth, "authentication failed")
	}
	if err := m.biometric.Prompt("Unlock your journal"); err != nil {
		return apperrors.New(apperrors.ErrAuth, "authentication failed")
	}

	master, err := m.unwrapMasterLocked(wrapKey)
	if err != nil {
		return err
	}
	m.setMasterKeyLocked(master)
	m.log.Info("unlocked with biometric")
	return nil
}

// ChangePasscode re-authenticates with the current passcode, then
// re-wraps the unchanged master key under a key derived from the new
// passcode and a fresh salt. The master key itself is never rotated
// here.
func (m *Manager) ChangePasscode(current, next string) error {
	if len(next) < MinPasscodeLen {
		return apperrors.New(apperrors.ErrValidation, "passcode too short")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	oldKey, err := m.verifyPasscodeLocked(current)
	if err != nil {
		return err
	}
	defer crypto.Zero(oldKey)

	master, err := m.unwrapMasterLocked(oldKey)
	if err != nil {
		return err
	}

	salt, err := crypto.NewSalt()
	if err != nil {
		crypto.Zero(master)
		return err
	}
	newKey := crypto.DeriveKey(next, salt)
	defer crypto.Zero(newKey)

	wrapped, err := crypto.Encrypt(master, newKey)
	if err != nil {
		crypto.Zero(master)
		return err
	}
	if err := m.store.Set(blobWrappedMaster, []byte(wrapped)); err != nil {
		crypto.Zero(master)
		return err
	}
	if err := m.store.Set(blobVerifier, crypto.MakeVerifier(newKey)); err != nil {
		crypto.Zero(master)
		return err
	}
	if m.cfg.UseBiometric {
		if err := m.store.Set(blobBiometricKey, newKey); err != nil {
			crypto.Zero(master)
			return err
		}
	} else {
		// Stale material from an older passcode must not linger.
		if err := m.store.Delete(blobBiometricKey); err != nil {
			crypto.Zero(master)
			return err
		}
	}

	cfg := *m.cfg
	cfg.Salt = hex.EncodeToString(salt)
	if err := saveConfig(m.cfgPath, &cfg); err != nil {
		crypto.Zero(master)
		return err
	}
	m.cfg = &cfg

	m.setMasterKeyLocked(master)
	m.log.Info("passcode changed")
	return nil
}

// DisableSecurity re-authenticates, deletes all wrapped-key and
// verification material, and resets the configuration to defaults.
// The manager ends in the Uninitialized (unlocked-equivalent) state.
func (m *Manager) DisableSecurity(passcode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wrapKey, err := m.verifyPasscodeLocked(passcode)
	if err != nil {
		return err
	}
	crypto.Zero(wrapKey)

	for _, name := range []string{blobWrappedMaster, blobVerifier, blobBiometricKey} {
		if err := m.store.Delete(name); err != nil {
			return err
		}
	}
	cfg := models.DefaultSecurityConfig()
	if err := saveConfig(m.cfgPath, cfg); err != nil {
		return err
	}
	m.cfg = cfg

	m.wipeKeyLocked()
	m.stopIdleTimerLocked()
	m.log.Info("security disabled")
	return nil
}

// Lock discards the in-memory master key. It always succeeds and is
// callable in any state.
func (m *Manager) Lock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wipeKeyLocked()
	m.stopIdleTimerLocked()
	m.log.Info("locked")
}

// WithKey runs fn with the master key while holding the state lock,
// so no component can retain the key beyond a single call. It fails
// with a locked error when the key is not held; with security
// disabled it fails the same way since there is no key to release.
func (m *Manager) WithKey(fn func(key []byte) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.masterKey == nil {
		return apperrors.New(apperrors.ErrLocked, "journal is locked")
	}
	return fn(m.masterKey)
}

func (m *Manager) setMasterKeyLocked(key []byte) {
	m.wipeKeyLocked()
	m.masterKey = key
	m.scheduleIdleTimerLocked()
}

func (m *Manager) wipeKeyLocked() {
	if m.masterKey != nil {
		crypto.Zero(m.masterKey)
		m.masterKey = nil
	}
}
