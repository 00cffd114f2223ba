package journal

import (
	"context"

	"github.com/simnote/core/internal/crypto"
	apperrors "github.com/simnote/core/internal/errors"
	"github.com/simnote/core/internal/models"
	"github.com/simnote/core/internal/security"
)

// SecurityState reports the engine's lock state.
func (s *Service) SecurityState() security.State { return s.sec.State() }

// IsSecurityEnabled reports whether encryption at rest is active.
func (s *Service) IsSecurityEnabled() bool { return s.sec.IsSecurityEnabled() }

// IsUnlocked reports whether content operations may proceed.
func (s *Service) IsUnlocked() bool { return s.sec.IsUnlocked() }

// SecurityConfig returns the persisted, non-secret security settings.
func (s *Service) SecurityConfig() models.SecurityConfig { return s.sec.Config() }

// SetupPasscode enables security, then seals every stored entry under
// the new master key so the record store holds no plaintext content
// afterwards. Re-setup discards the previous master key, so entries
// sealed under it are opened first; that requires the journal to be
// unlocked.
func (s *Service) SetupPasscode(ctx context.Context, passcode string) error {
	if len(passcode) < security.MinPasscodeLen {
		return apperrors.New(apperrors.ErrValidation, "passcode too short")
	}

	firstEnable := !s.sec.IsSecurityEnabled()
	if !firstEnable {
		if !s.sec.IsUnlocked() {
			return apperrors.New(apperrors.ErrLocked, "journal is locked")
		}
		if err := s.resealAll(ctx, false); err != nil {
			return err
		}
	}

	if err := s.sec.SetupPasscode(passcode); err != nil {
		return err
	}
	if firstEnable && s.autoLock > 0 {
		if err := s.sec.SetAutoLockMinutes(s.autoLock); err != nil {
			return err
		}
	}
	return s.resealAll(ctx, true)
}

// ChangePasscode re-wraps the master key under a new passcode. Stored
// content stays sealed under the same master key, so no rows change.
func (s *Service) ChangePasscode(current, next string) error {
	return s.sec.ChangePasscode(current, next)
}

// DisableSecurity opens every sealed entry while the key is still
// held, then removes the key material and settings. If teardown fails
// after the rewrite, content is plaintext but security stays enabled,
// which a retry resolves.
func (s *Service) DisableSecurity(ctx context.Context, passcode string) error {
	if err := s.sec.AuthenticateWithPasscode(passcode); err != nil {
		return err
	}
	if err := s.resealAll(ctx, false); err != nil {
		return err
	}
	return s.sec.DisableSecurity(passcode)
}

// UnlockWithPasscode releases the master key after verifying the
// passcode.
func (s *Service) UnlockWithPasscode(passcode string) error {
	if err := s.sec.AuthenticateWithPasscode(passcode); err != nil {
		return err
	}
	s.sec.Touch()
	return nil
}

// UnlockWithBiometric releases the master key after a successful
// biometric prompt.
func (s *Service) UnlockWithBiometric() error {
	if err := s.sec.AuthenticateWithBiometric(); err != nil {
		return err
	}
	s.sec.Touch()
	return nil
}

// Lock drops the master key from memory. Always succeeds.
func (s *Service) Lock() { s.sec.Lock() }

// EnableBiometric turns on biometric unlock. The unlock material is
// stored on the next successful passcode authentication.
func (s *Service) EnableBiometric() error { return s.sec.EnableBiometric() }

// DisableBiometric turns off biometric unlock and removes its stored
// material.
func (s *Service) DisableBiometric() error { return s.sec.DisableBiometric() }

// SetAutoLockMinutes sets the idle window after which the journal
// locks itself. Zero disables auto-lock.
func (s *Service) SetAutoLockMinutes(minutes int) error {
	return s.sec.SetAutoLockMinutes(minutes)
}

// resealAll rewrites every entry's content to the target sealing
// state, in place, without touching updatedAt: a security toggle is
// not an edit. The mirror follows each rewritten row.
func (s *Service) resealAll(ctx context.Context, seal bool) error {
	entries, err := s.repo.ListEntries(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.ContentEncrypted == seal {
			continue
		}
		err := s.sec.WithKey(func(key []byte) error {
			if seal {
				blob, err := crypto.Encrypt([]byte(e.Content), key)
				if err != nil {
					return err
				}
				e.Content = blob
			} else {
				plain, err := crypto.Decrypt(e.Content, key)
				if err != nil {
					return err
				}
				e.Content = string(plain)
			}
			e.ContentEncrypted = seal
			return nil
		})
		if err != nil {
			return err
		}
		if err := s.repo.UpdateEntry(ctx, e); err != nil {
			return err
		}
		if err := s.mirror.Write(e); err != nil {
			return err
		}
	}
	return nil
}
