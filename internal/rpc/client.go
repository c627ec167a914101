// internal/rpc/client.go
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/mq"
)

// ErrCallTimeout 表示在超时时间内没有等到匹配的应答。
// 调用方必须把它当作一种可恢复的结果处理，而不是挂起。
var ErrCallTimeout = errors.New("rpc: call timed out waiting for reply")

// Client 在 Kafka 之上实现同步的请求/应答调用。
// 每个 Client 实例持有一个私有的应答 Topic，所有在途调用共用它，
// 由 CorrelationID 区分归属。
type Client struct {
	brokers    []string
	replyTopic string
	tracer     trace.Tracer

	// CorrelationID -> 容量为 1 的应答通道。
	// 注册先于发布；解除注册发生在应答送达或超时，二者取先。
	pending sync.Map

	writerMu sync.Mutex
	writers  map[string]*kafka.Writer

	// 测试中替换为内存实现
	publish func(ctx context.Context, topic string, env *Envelope) error

	closeOnce sync.Once
	reader    *kafka.Reader
	done      chan struct{}
}

// NewClient 创建客户端并启动应答消费循环。
// serviceName 参与应答 Topic 命名，便于在 broker 上辨认归属。
func NewClient(ctx context.Context, brokers []string, serviceName string) (*Client, error) {
	replyTopic := fmt.Sprintf("rpc.reply.%s.%s", serviceName, uuid.NewString()[:8])
	if err := mq.EnsureTopic(brokers, replyTopic, 1); err != nil {
		return nil, fmt.Errorf("provision reply topic: %w", err)
	}

	c := &Client{
		brokers:    brokers,
		replyTopic: replyTopic,
		tracer:     otel.Tracer("rpc-client"),
		writers:    make(map[string]*kafka.Writer),
		done:       make(chan struct{}),
	}
	c.publish = c.publishKafka

	c.reader = mq.NewKafkaReader(brokers, replyTopic, "rpc-client-"+replyTopic)
	go c.consumeReplies(ctx)
	return c, nil
}

// Call 发起一次调用并等待匹配的应答。
// 超时返回 ErrCallTimeout；迟到的应答会被消费循环直接丢弃，
// 不会串到后续复用同一应答 Topic 的调用上。
func (c *Client) Call(ctx context.Context, route Route, req interface{}, timeout time.Duration) (interface{}, error) {
	ctx, span := c.tracer.Start(ctx, "rpc.call."+route.Key, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request for %s: %w", route.Key, err)
	}

	corrID := uuid.NewString()
	span.SetAttributes(
		attribute.String("rpc.route", route.Key),
		attribute.String("rpc.correlation_id", corrID),
	)

	// 1. 先登记待完成槽位，再发布，避免应答先于登记到达
	ch := make(chan *Envelope, 1)
	c.pending.Store(corrID, ch)
	defer c.pending.Delete(corrID)

	env := &Envelope{
		CorrelationID: corrID,
		ReplyTopic:    c.replyTopic,
		Op:            route.Key,
		Payload:       payload,
	}

	// 2. 发布请求
	if err := c.publish(ctx, route.Queue, env); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("publish request to %s: %w", route.Queue, err)
	}

	// 3. 应答与计时器赛跑
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case reply := <-ch:
		if reply.Error != "" {
			span.SetStatus(codes.Error, reply.Error)
			return nil, fmt.Errorf("rpc %s failed remotely: %s", route.Key, reply.Error)
		}
		return DecodeResponse(route.Key, reply.Payload)
	case <-timer.C:
		callTimeouts.WithLabelValues(route.Key).Inc()
		span.SetStatus(codes.Error, "timeout")
		return nil, fmt.Errorf("%w: %s after %s", ErrCallTimeout, route.Key, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// consumeReplies 持续消费应答 Topic 并按 CorrelationID 分发。
func (c *Client) consumeReplies(ctx context.Context) {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.L().Error().Err(err).Msg("rpc client: failed to read reply")
			time.Sleep(time.Second)
			continue
		}

		var env Envelope
		if err := json.Unmarshal(msg.Value, &env); err != nil {
			logger.L().Error().Err(err).Msg("rpc client: malformed reply dropped")
			continue
		}
		c.dispatch(&env)
	}
}

// dispatch 把应答交给等待者。LoadAndDelete 保证每个槽位至多被完成一次：
// 超时后才到的应答在这里找不到槽位，记一笔指标后丢弃。
func (c *Client) dispatch(env *Envelope) {
	v, ok := c.pending.LoadAndDelete(env.CorrelationID)
	if !ok {
		staleReplies.Inc()
		logger.L().Debug().
			Str("correlation_id", env.CorrelationID).
			Str("op", env.Op).
			Msg("rpc client: stale or unknown reply dropped")
		return
	}
	v.(chan *Envelope) <- env
}

func (c *Client) publishKafka(ctx context.Context, topic string, env *Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return mq.ProduceMessage(ctx, c.getWriter(topic), []byte(env.CorrelationID), value)
}

func (c *Client) getWriter(topic string) *kafka.Writer {
	c.writerMu.Lock()
	defer c.writerMu.Unlock()
	w, ok := c.writers[topic]
	if !ok {
		w = mq.NewKafkaWriter(c.brokers, topic)
		c.writers[topic] = w
	}
	return w
}

// Close 停止消费并释放连接。应答 Topic 留给 broker 的保留策略清理。
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.reader != nil {
			err = c.reader.Close()
		}
		c.writerMu.Lock()
		for _, w := range c.writers {
			w.Close()
		}
		c.writerMu.Unlock()
	})
	return err
}
