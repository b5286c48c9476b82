package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

func (b *Bot) presenceLoop(ctx context.Context) {
	ticker := time.NewTicker(b.config.StatusInterval)
	defer ticker.Stop()

	last := ""
	update := func() {
		text := presenceText(b.tracker.LiveCount())
		if text == last {
			return
		}
		if err := b.session.UpdateWatchStatus(0, text); err != nil {
			slog.Warn("Failed to update presence", "error", err)
			return
		}
		last = text
	}

	update()
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.stopChan:
			return
		case <-ticker.C:
			update()
		}
	}
}

func presenceText(live int) string {
	switch live {
	case 0:
		return "for live games"
	case 1:
		return "1 live game"
	default:
		return fmt.Sprintf("%d live games", live)
	}
}
