// Package updater replaces the running binary with the latest GitHub release
// and keeps one backup for rollback.
package updater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/creativeprojects/go-selfupdate"

	"github.com/smazurov/wavering/internal/logging"
	"github.com/smazurov/wavering/internal/version"
)

// DefaultRepository is the GitHub slug releases are fetched from.
const DefaultRepository = "smazurov/wavering"

// Options configures an Updater.
type Options struct {
	Repository string // GitHub slug, defaults to DefaultRepository
	Prerelease bool
	// BackupDir defaults to the user cache directory.
	BackupDir string
}

// Info describes the latest release relative to the running binary.
type Info struct {
	CurrentVersion  string    `json:"current_version"`
	LatestVersion   string    `json:"latest_version"`
	ReleaseNotes    string    `json:"release_notes,omitempty"`
	ReleaseURL      string    `json:"release_url,omitempty"`
	PublishedAt     time.Time `json:"published_at"`
	AssetSize       int       `json:"asset_size"`
	UpdateAvailable bool      `json:"update_available"`
}

// Updater checks for and installs releases.
type Updater struct {
	repo    selfupdate.Repository
	updater *selfupdate.Updater
	backups *backups
	current string
	logger  *slog.Logger
}

// New creates an Updater backed by the GitHub releases API.
func New(opts Options) (*Updater, error) {
	if opts.Repository == "" {
		opts.Repository = DefaultRepository
	}
	if opts.BackupDir == "" {
		dir, err := defaultBackupDir()
		if err != nil {
			return nil, fmt.Errorf("backup directory: %w", err)
		}
		opts.BackupDir = dir
	}

	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub source: %w", err)
	}
	up, err := selfupdate.NewUpdater(selfupdate.Config{
		Source:     source,
		Prerelease: opts.Prerelease,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create updater: %w", err)
	}

	logger := logging.GetLogger("updater")
	return &Updater{
		repo:    selfupdate.ParseSlug(opts.Repository),
		updater: up,
		backups: &backups{dir: opts.BackupDir, logger: logger},
		current: version.Version,
		logger:  logger,
	}, nil
}

// Check looks up the latest release without downloading it.
func (u *Updater) Check(ctx context.Context) (*Info, error) {
	_, info, err := u.latest(ctx)
	return info, err
}

func (u *Updater) latest(ctx context.Context) (*selfupdate.Release, *Info, error) {
	release, found, err := u.updater.DetectLatest(ctx, u.repo)
	if err != nil {
		return nil, nil, newError(ErrCodeCheckFailed, "failed to check for updates", err)
	}
	if !found {
		return nil, nil, newError(ErrCodeNotFound, "repository not found or has no releases", nil)
	}

	info := &Info{
		CurrentVersion:  u.current,
		LatestVersion:   release.Version(),
		ReleaseNotes:    release.ReleaseNotes,
		ReleaseURL:      release.URL,
		PublishedAt:     release.PublishedAt,
		AssetSize:       release.AssetByteSize,
		UpdateAvailable: newer(u.current, release),
	}
	return release, info, nil
}

// Apply backs up the running binary and replaces it with the latest release.
// The caller restarts the process.
func (u *Updater) Apply(ctx context.Context) (*Info, error) {
	release, info, err := u.latest(ctx)
	if err != nil {
		return nil, err
	}
	if !info.UpdateAvailable {
		return info, newError(ErrCodeNoUpdate, "already running "+info.CurrentVersion, nil)
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return nil, newError(ErrCodeApplyFailed, "failed to get executable path", err)
	}
	if _, err := u.backups.create(exe, u.current); err != nil {
		return nil, newError(ErrCodeBackupFailed, "failed to create backup", err)
	}

	if err := u.updater.UpdateTo(ctx, release, exe); err != nil {
		if _, rbErr := u.backups.restore(); rbErr != nil {
			u.logger.Error("Rollback after failed update failed", "error", rbErr)
		}
		return nil, newError(ErrCodeApplyFailed, "failed to apply update", err)
	}
	u.logger.Info("Update applied", "from", u.current, "to", info.LatestVersion)
	return info, nil
}

// Rollback restores the binary saved by the last Apply and returns its version.
func (u *Updater) Rollback() (string, error) {
	info, err := u.backups.restore()
	switch {
	case errors.Is(err, errNoBackup):
		return "", newError(ErrCodeNoBackup, "no backup available", nil)
	case err != nil:
		return "", newError(ErrCodeRollbackFailed, "failed to restore backup", err)
	}
	return info.Version, nil
}

type versioned interface {
	GreaterThan(string) bool
}

// newer reports whether release is newer than current. Development builds
// are always outdated.
func newer(current string, release versioned) bool {
	return current == "dev" || release.GreaterThan(current)
}
