package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/natours/natours-auth/internal/events"
	"github.com/natours/natours-auth/internal/mailer"
	"github.com/natours/natours-auth/internal/service"
)

type countingSender struct {
	mu    sync.Mutex
	count int
}

func (s *countingSender) SendEmail(context.Context, mailer.SendEmailParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	return nil
}

func (s *countingSender) sent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func TestStartNotificationWorker(t *testing.T) {
	defer goleak.VerifyNone(t)

	sender := &countingSender{}
	queue := events.NewQueuedDispatcher(8, zap.NewNop())
	svc := service.NewNotificationService(sender, queue, zap.NewNop(), 10*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := StartNotificationWorker(ctx, svc, queue)

	require.NoError(t, queue.Publish(ctx, events.New(events.EventPrincipalSignedUp, "p-1", time.Now(), events.PrincipalSignedUpPayload{
		Name:  "Jonas",
		Email: "jonas@example.com",
	})))

	assert.Eventually(t, func() bool { return sender.sent() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestStartNotificationWorker_SendsQueuedWelcomeOnShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	sender := &countingSender{}
	queue := events.NewQueuedDispatcher(8, zap.NewNop())
	svc := service.NewNotificationService(sender, queue, zap.NewNop(), 10*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	for _, email := range []string{"jonas@example.com", "lisa@example.com"} {
		require.NoError(t, queue.Publish(ctx, events.New(events.EventPrincipalSignedUp, "p-1", time.Now(), events.PrincipalSignedUpPayload{
			Name:  "Jonas",
			Email: email,
		})))
	}
	cancel()

	done := StartNotificationWorker(ctx, svc, queue)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, 2, sender.sent())
}

func TestStartNotificationWorker_NilDependencies(t *testing.T) {
	done := StartNotificationWorker(context.Background(), nil, nil)
	_, open := <-done
	assert.False(t, open)
}
