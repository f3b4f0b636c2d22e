package device

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jochenvg/go-udev"
)

// pollInterval is used when udev monitoring is unavailable (non-Linux
// hosts, or a sandboxed environment with no netlink access).
const pollInterval = 2 * time.Second

// WatchHotplug refreshes reg whenever the host signals a device
// topology change, until ctx is cancelled. It prefers udev netlink
// events and falls back to polling Refresh on pollInterval when udev
// can't be initialized, per §4.4's observer contract: a desktop/CI
// environment without a working udev daemon must still see devices
// come and go, just less promptly.
func WatchHotplug(ctx context.Context, reg *Registry, logger *log.Logger) {
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.With("component", "device.hotplug")

	if watchViaUdev(ctx, reg, logger) {
		return
	}

	logger.Debug("udev unavailable, falling back to polling")
	watchViaPolling(ctx, reg, logger)
}

// watchViaUdev attempts to subscribe to udev "sound" subsystem netlink
// events. Returns false if the netlink monitor cannot be created, its
// subsystem filter cannot be added, or it cannot be started, so the
// caller can fall back to polling.
func watchViaUdev(ctx context.Context, reg *Registry, logger *log.Logger) bool {
	u := udev.Udev{}
	monitor := u.NewMonitorFromNetlink("udev")
	if monitor == nil {
		return false
	}
	if err := monitor.FilterAddMatchSubsystem("sound"); err != nil {
		logger.Debug("udev filter setup failed", "err", err)
		return false
	}

	deviceChan, errChan, err := monitor.DeviceChan(ctx)
	if err != nil {
		logger.Debug("udev monitor start failed", "err", err)
		return false
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-deviceChan:
				if err := reg.Refresh(); err != nil {
					logger.Error("refresh after udev event failed", "err", err)
				}
			case err, ok := <-errChan:
				if !ok {
					return
				}
				logger.Error("udev monitor error", "err", err)
			}
		}
	}()
	return true
}

func watchViaPolling(ctx context.Context, reg *Registry, logger *log.Logger) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := reg.Refresh(); err != nil {
				logger.Error("poll refresh failed", "err", err)
			}
		}
	}
}
