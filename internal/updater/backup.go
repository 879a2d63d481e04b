package updater

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	backupFilename     = "wavering.backup"
	backupInfoFilename = "backup.json"
)

var errNoBackup = errors.New("no backup available")

type backupInfo struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	ExecPath  string    `json:"exec_path"`
}

// backups keeps one copy of the previous binary in dir.
type backups struct {
	dir    string
	logger *slog.Logger
}

func defaultBackupDir() (string, error) {
	cache, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cache, "wavering", "backup"), nil
}

func (b *backups) load() (*backupInfo, error) {
	data, err := os.ReadFile(filepath.Join(b.dir, backupInfoFilename))
	if errors.Is(err, os.ErrNotExist) {
		return nil, errNoBackup
	}
	if err != nil {
		return nil, err
	}
	var info backupInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse backup info: %w", err)
	}
	if _, err := os.Stat(filepath.Join(b.dir, backupFilename)); err != nil {
		return nil, errNoBackup
	}
	return &info, nil
}

func (b *backups) create(execPath, ver string) (*backupInfo, error) {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return nil, err
	}
	if err := copyFile(execPath, filepath.Join(b.dir, backupFilename)); err != nil {
		return nil, err
	}

	info := &backupInfo{Version: ver, CreatedAt: time.Now().UTC(), ExecPath: execPath}
	data, err := json.Marshal(info)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(b.dir, backupInfoFilename), data, 0o644); err != nil {
		return nil, err
	}
	b.logger.Info("Backup created", "version", ver, "dir", b.dir)
	return info, nil
}

// restore puts the backup back in place. The running binary is replaced by
// rename, never rewritten in place.
func (b *backups) restore() (*backupInfo, error) {
	info, err := b.load()
	if err != nil {
		return nil, err
	}
	tmp := info.ExecPath + ".restore"
	if err := copyFile(filepath.Join(b.dir, backupFilename), tmp); err != nil {
		return nil, err
	}
	if err := os.Rename(tmp, info.ExecPath); err != nil {
		_ = os.Remove(tmp)
		return nil, err
	}
	b.logger.Info("Backup restored", "version", info.Version, "path", info.ExecPath)
	return info, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
