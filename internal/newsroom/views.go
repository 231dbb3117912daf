package newsroom

import (
	"context"
	"log/slog"

	"github.com/joestump/newswire/internal/metrics"
	"github.com/joestump/newswire/internal/store"
)

// ViewRecorder persists article views.
type ViewRecorder interface {
	RecordView(ctx context.Context, e store.ViewEvent) error
}

// RunViewWriter persists view events from ch until ch is closed or ctx is
// cancelled. On cancellation it drains whatever is already queued.
func RunViewWriter(ctx context.Context, ch <-chan store.ViewEvent, views ViewRecorder, logger *slog.Logger) {
	write := func(ctx context.Context, e store.ViewEvent) {
		if err := views.RecordView(ctx, e); err != nil {
			metrics.ViewsDroppedTotal.Inc()
			logger.Error("view write failed", "news_id", e.NewsID, "error", err)
			return
		}
		metrics.ViewsRecordedTotal.Inc()
	}

	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			write(ctx, e)
		case <-ctx.Done():
			for {
				select {
				case e, ok := <-ch:
					if !ok {
						return
					}
					write(context.Background(), e)
				default:
					return
				}
			}
		}
	}
}
