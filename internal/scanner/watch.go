package scanner

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rjeczalik/notify"
)

// Watch runs scans continuously: once at startup, again whenever the
// filesystem reports changes under the watched root, and on a fixed
// interval regardless of the watcher (remote collections produce no
// filesystem events, so the ticker is their only trigger).
// To kill the watcher, the calling code should cancel the context
// provided.
func (s *Service) Watch(ctx context.Context, watchRoot string) error {
	fsNotifyChannel := make(chan notify.EventInfo, 16)
	if watchRoot != "" {
		if err := notify.Watch(filepath.Join(watchRoot, "..."), fsNotifyChannel, notify.All); err != nil {
			return fmt.Errorf("failed to watch %s: %w", watchRoot, err)
		}
		defer notify.Stop(fsNotifyChannel)
	}

	forceSyncChannel := time.NewTicker(time.Second * time.Duration(s.config.ForceSyncSeconds))
	defer forceSyncChannel.Stop()

	if _, err := s.Scan(ctx); err != nil {
		return err
	}

	for {
		select {
		case event := <-fsNotifyChannel:
			log.Debugf("Filesystem event %s, rescanning\n", event.Event())
			if _, err := s.Scan(ctx); err != nil {
				log.Errorf("Rescan failed: %v\n", err)
			}
		case <-forceSyncChannel.C:
			if _, err := s.Scan(ctx); err != nil {
				log.Errorf("Forced rescan failed: %v\n", err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}
