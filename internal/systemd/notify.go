// Package systemd reports service state to systemd through sd_notify.
package systemd

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/smazurov/wavering/internal/logging"
)

// Notifier sends state changes to the service manager. Without
// NOTIFY_SOCKET every call is a no-op.
type Notifier struct {
	logger logging.Logger
	notify func(unsetEnv bool, state string) (bool, error)
}

// NewNotifier creates a Notifier using the process environment.
func NewNotifier() *Notifier {
	return &Notifier{
		logger: logging.GetLogger("systemd"),
		notify: daemon.SdNotify,
	}
}

// Ready reports that startup finished.
func (n *Notifier) Ready() error {
	return n.send(daemon.SdNotifyReady)
}

// Stopping reports that shutdown began.
func (n *Notifier) Stopping() error {
	return n.send(daemon.SdNotifyStopping)
}

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(format string, args ...any) error {
	return n.send("STATUS=" + fmt.Sprintf(format, args...))
}

func (n *Notifier) send(state string) error {
	sent, err := n.notify(false, state)
	if err != nil {
		return fmt.Errorf("sd_notify %q: %w", state, err)
	}
	if sent {
		n.logger.Debug("Notified service manager", "state", state)
	}
	return nil
}

// Watchdog pings the service manager at half the configured WatchdogSec
// until ctx is done. It returns immediately when no watchdog is configured.
func (n *Notifier) Watchdog(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		n.logger.Warn("Watchdog configuration invalid", "error", err)
		return
	}
	if interval == 0 {
		return
	}
	n.runWatchdog(ctx, interval/2)
}

func (n *Notifier) runWatchdog(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := n.send(daemon.SdNotifyWatchdog); err != nil {
				n.logger.Warn("Watchdog ping failed", "error", err)
			}
		}
	}
}
