package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/multi-strategy-rag/internal/infrastructure/resilience"
)

const workerGroup = "ingest-workers"

// sourceQueuedEvent is the wire form of an ingestion job.
type sourceQueuedEvent struct {
	SourceID   string    `json:"source_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

type Queue struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
	logger   *slog.Logger
	onLag    func(time.Duration)
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
	// OnLag receives the time a job spent queued, when the publisher stamped it.
	OnLag func(time.Duration)
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("multi-strategy-rag"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
		logger:   logger,
		onLag:    options.OnLag,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishSourceQueued(ctx context.Context, sourceID string) error {
	payload, err := encodeEvent(sourceID, time.Now().UTC())
	if err != nil {
		return err
	}
	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeSourceQueued blocks until ctx is cancelled, then drains in-flight
// messages before returning.
func (q *Queue) SubscribeSourceQueued(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, workerGroup, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		sourceID, enqueuedAt, err := decodeEvent(msg.Data)
		if err != nil {
			q.logger.Error("ingest_message_invalid", "error", err)
			return
		}
		if q.onLag != nil && !enqueuedAt.IsZero() {
			q.onLag(time.Since(enqueuedAt))
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, sourceID); err != nil {
			q.logger.Error("ingest_handler_failed", "source_id", sourceID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func encodeEvent(sourceID string, at time.Time) ([]byte, error) {
	payload, err := json.Marshal(sourceQueuedEvent{SourceID: sourceID, EnqueuedAt: at})
	if err != nil {
		return nil, fmt.Errorf("marshal ingest event: %w", err)
	}
	return payload, nil
}

// decodeEvent also accepts a bare id so older publishers keep working.
func decodeEvent(data []byte) (string, time.Time, error) {
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return "", time.Time{}, fmt.Errorf("empty ingest message")
	}
	if !strings.HasPrefix(raw, "{") {
		return raw, time.Time{}, nil
	}
	var event sourceQueuedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return "", time.Time{}, fmt.Errorf("unmarshal ingest event: %w", err)
	}
	if strings.TrimSpace(event.SourceID) == "" {
		return "", time.Time{}, fmt.Errorf("ingest event without source_id")
	}
	return event.SourceID, event.EnqueuedAt, nil
}
