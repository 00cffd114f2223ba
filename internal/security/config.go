package security

import (
	"encoding/json"
	"os"
	"path/filepath"

	apperrors "github.com/simnote/core/internal/errors"
	"github.com/simnote/core/internal/fsutil"
	"github.com/simnote/core/internal/models"
)

// ConfigFileName is the persisted security configuration document.
const ConfigFileName = "security.json"

func loadConfig(path string) (*models.SecurityConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.DefaultSecurityConfig(), nil
		}
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to read security config", err)
	}
	cfg := models.DefaultSecurityConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "corrupt security config", err)
	}
	if cfg.AutoLockMinutes < 0 {
		cfg.AutoLockMinutes = 0
	}
	return cfg, nil
}

func saveConfig(path string, cfg *models.SecurityConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, "failed to encode security config", err)
	}
	if err := fsutil.WriteFileAtomic(path, data, 0600); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to write security config", err)
	}
	return nil
}

func configPath(dataDir string) string {
	return filepath.Join(dataDir, ConfigFileName)
}
