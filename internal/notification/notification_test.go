package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []Message
	fail int
}

func (s *recordingSender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fail > 0 {
		s.fail--
		return errors.New("smtp unavailable")
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestQueue_DeliversMessage(t *testing.T) {
	sender := &recordingSender{}
	q := NewQueue(sender, zap.NewNop(), 4)

	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)

	q.Enqueue(Message{OrderNumber: "A1B2C3D4", UserID: 1, TotalAmount: 220000})

	deadline := time.After(2 * time.Second)
	for sender.sentCount() == 0 {
		select {
		case <-deadline:
			t.Fatalf("message was not delivered")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	q.Wait()
}

func TestQueue_RetriesTransientFailure(t *testing.T) {
	sender := &recordingSender{fail: 2}
	q := NewQueue(sender, zap.NewNop(), 4)

	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)

	q.Enqueue(Message{OrderNumber: "A1B2C3D4"})

	deadline := time.After(5 * time.Second)
	for sender.sentCount() == 0 {
		select {
		case <-deadline:
			t.Fatalf("message was not delivered after retries")
		case <-time.After(20 * time.Millisecond):
		}
	}

	cancel()
	q.Wait()
}

func TestQueue_FullQueueDoesNotBlock(t *testing.T) {
	// Воркер не запущен: очередь переполняется, Enqueue обязан вернуться сразу.
	sender := &recordingSender{}
	q := NewQueue(sender, zap.NewNop(), 1)

	done := make(chan struct{})
	go func() {
		q.Enqueue(Message{OrderNumber: "ONE"})
		q.Enqueue(Message{OrderNumber: "TWO"})
		q.Enqueue(Message{OrderNumber: "THREE"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Enqueue blocked on full queue")
	}
}
