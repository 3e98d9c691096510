package worker

import (
	"context"

	"github.com/natours/natours-auth/internal/events"
	"github.com/natours/natours-auth/internal/service"
)

// StartNotificationWorker registers notification handlers and drains the
// queue until ctx is done. The returned channel closes once the loop exits.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, queue *events.QueuedDispatcher) <-chan struct{} {
	done := make(chan struct{})
	if notificationService == nil || queue == nil {
		close(done)
		return done
	}
	notificationService.RegisterHandlers()
	go func() {
		defer close(done)
		queue.Run(ctx)
	}()
	return done
}
