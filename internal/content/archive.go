package content

import (
	"time"

	"github.com/spf13/afero"

	"multicap/internal/clock"
)

// Archive implements spec §4.8's archive rule, shared by the tinylog
// inserter and the Titan receiver: for a target path "/a/b/file.ext",
// ensure directory "/archive/a/b/file.ext/" exists and copy the current
// file into it, named by local time "<YYYYMMDD-HHMMSS>". If targetPath
// doesn't currently exist (nothing to archive yet), Archive is a no-op.
func Archive(fs afero.Fs, targetPath string, now time.Time) error {
	exists, err := afero.Exists(fs, targetPath)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	archiveDir := "/archive" + targetPath
	if err := fs.MkdirAll(archiveDir, 0755); err != nil {
		return err
	}

	data, err := afero.ReadFile(fs, targetPath)
	if err != nil {
		return err
	}
	dest := archiveDir + "/" + clock.ArchiveStamp(now)
	return afero.WriteFile(fs, dest, data, 0644)
}

// ReplaceAtomically copies tmpPath over destPath (copy-then-remove, per
// spec §9's "filesystem atomicity" note: a real rename is used where the
// filesystem supports it, falling back to copy+remove here because afero's
// Fs interface does not guarantee Rename works across all backing stores,
// notably MemMapFs's rename-before-close ordering in tests).
func ReplaceAtomically(fs afero.Fs, tmpPath, destPath string) error {
	if err := fs.Rename(tmpPath, destPath); err == nil {
		return nil
	}
	data, err := afero.ReadFile(fs, tmpPath)
	if err != nil {
		return err
	}
	if err := afero.WriteFile(fs, destPath, data, 0644); err != nil {
		return err
	}
	return fs.Remove(tmpPath)
}
