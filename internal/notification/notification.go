// Package notification реализует очередь писем-подтверждений заказа.
// Отправка выполняется в фоне и никогда не влияет на результат оформления:
// ошибки логируются и считаются, но не возвращаются вызывающему.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

var (
	sendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notification_send_failures_total",
		Help: "Count of order confirmation messages that failed to send after retries.",
	})
	queueDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notification_queue_drops_total",
		Help: "Count of order confirmation messages dropped because the queue was full.",
	})
)

// Message описывает подтверждение заказа для отправки покупателю.
type Message struct {
	OrderNumber string
	UserID      int64
	TotalAmount int64
}

// Sender отправляет одно подтверждение.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender пишет подтверждение в лог вместо реальной доставки почты.
type LogSender struct {
	Logger *zap.Logger
}

// Send реализует Sender.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.Logger.Info("order confirmation",
		zap.String("order", msg.OrderNumber),
		zap.Int64("userID", msg.UserID),
		zap.Int64("total", msg.TotalAmount),
	)
	return nil
}

// Queue буферизует подтверждения и отправляет их фоновым воркером.
type Queue struct {
	ch     chan Message
	sender Sender
	logger *zap.Logger
	done   chan struct{}
}

// NewQueue создаёт очередь с указанной ёмкостью буфера.
func NewQueue(sender Sender, logger *zap.Logger, size int) *Queue {
	return &Queue{
		ch:     make(chan Message, size),
		sender: sender,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Enqueue ставит подтверждение в очередь, не блокируясь. При переполненной
// очереди сообщение отбрасывается с записью в лог.
func (q *Queue) Enqueue(msg Message) {
	select {
	case q.ch <- msg:
	default:
		queueDrops.Inc()
		q.logger.Warn("notification queue full, message dropped",
			zap.String("order", msg.OrderNumber),
		)
	}
}

// Start запускает фоновую отправку; воркер останавливается при отмене контекста.
func (q *Queue) Start(ctx context.Context) {
	go func() {
		defer close(q.done)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-q.ch:
				q.send(ctx, msg)
			}
		}
	}()
}

// Wait блокируется до завершения воркера.
func (q *Queue) Wait() {
	<-q.done
}

func (q *Queue) send(ctx context.Context, msg Message) {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(100*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := q.sender.Send(ctx, msg); err != nil {
			return retry.RetryableError(fmt.Errorf("send confirmation: %w", err))
		}
		return nil
	})
	if err != nil {
		sendFailures.Inc()
		q.logger.Error("order confirmation not sent",
			zap.String("order", msg.OrderNumber),
			zap.Error(err),
		)
	}
}
