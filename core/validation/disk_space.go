package validation

import (
	"fmt"
	"os"
	"path/filepath"

	"flux_backend/core"
)

// DiskSpaceInfo describes the filesystem containing a path.
type DiskSpaceInfo struct {
	Path        string
	Total       int64
	Free        int64
	Used        int64
	UsedPercent float64
}

// DiskSpaceError indicates insufficient free space.
type DiskSpaceError struct {
	Path      string
	Required  int64
	Available int64
}

func (e *DiskSpaceError) Error() string {
	return fmt.Sprintf("insufficient disk space at %s: need %s, have %s free",
		e.Path, core.FormatBytes(e.Required), core.FormatBytes(e.Available))
}

// MinOutputSpaceBytes is the free space required before the service will
// start persisting generated images (1 GB).
const MinOutputSpaceBytes = core.BytesPerGB

// GetDiskSpace returns disk usage for the filesystem containing path.
// When the path does not exist yet, the nearest existing parent is checked
// instead, so the output directory can be validated before it is created.
func GetDiskSpace(path string) (*DiskSpaceInfo, error) {
	probe := path
	for {
		if _, err := os.Stat(probe); err == nil {
			break
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("cannot access path %s: %w", probe, err)
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			return nil, fmt.Errorf("no accessible parent for path %s", path)
		}
		probe = parent
	}

	total, free, err := getDiskSpace(probe)
	if err != nil {
		return nil, fmt.Errorf("failed to get disk space for %s: %w", probe, err)
	}

	used := total - free
	var usedPercent float64
	if total > 0 {
		usedPercent = float64(used) / float64(total) * 100
	}
	return &DiskSpaceInfo{
		Path:        probe,
		Total:       total,
		Free:        free,
		Used:        used,
		UsedPercent: usedPercent,
	}, nil
}

// CheckDiskSpace verifies there are at least requiredBytes free on the
// filesystem containing path.
func CheckDiskSpace(path string, requiredBytes int64) error {
	info, err := GetDiskSpace(path)
	if err != nil {
		return err
	}
	if info.Free < requiredBytes {
		return &DiskSpaceError{Path: path, Required: requiredBytes, Available: info.Free}
	}
	return nil
}

// CheckOutputSpace verifies the image output directory has enough headroom
// for persisted results.
func CheckOutputSpace(outputDir string) error {
	return CheckDiskSpace(outputDir, MinOutputSpaceBytes)
}
