package shutdown

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"flux_backend/core"
	"flux_backend/logging"
)

// editStagingPattern matches the temp files the remote backend writes while
// staging edit inputs for multipart upload.
const editStagingPattern = "flux-edit-*.png"

// CleanupEditStaging returns a shutdown handler that removes leftover edit
// staging files from the system temp directory. Files are normally deleted
// as soon as the upload completes; this sweeps up after crashes and
// cancelled requests.
//
// Removal failures are logged but never block shutdown.
func CleanupEditStaging(log *logging.Logger) core.ShutdownFunc {
	if log == nil {
		log = logging.NewNop()
	}
	return func(ctx context.Context) error {
		matches, err := filepath.Glob(filepath.Join(os.TempDir(), editStagingPattern))
		if err != nil {
			log.Warn("Failed to scan temp directory", zap.Error(err))
			return nil
		}
		removed := 0
		for _, path := range matches {
			if ctx.Err() != nil {
				break
			}
			if err := os.Remove(path); err != nil {
				log.Warn("Failed to remove staging file",
					zap.String("path", path), zap.Error(err))
				continue
			}
			removed++
		}
		if removed > 0 {
			log.Info("Removed edit staging files", zap.Int("count", removed))
		}
		return nil
	}
}
