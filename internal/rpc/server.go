// internal/rpc/server.go
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/mq"
)

const attemptHeader = "x-attempt"

// HandlerFunc 处理一条已解码的请求。req 的具体类型由路由决定
// （见 DecodeRequest），处理器内部做一次类型断言取回。
// 处理器必须是无共享可变状态的：同一路由的多条消息会并发执行。
type HandlerFunc func(ctx context.Context, req interface{}) (interface{}, error)

type routeBinding struct {
	route   Route
	handler HandlerFunc
}

// Server 把路由绑定到本地处理器，消费请求并发布应答。
// 一条消息处理失败只影响它自己：有限次重投递后进死信 Topic，
// 消费循环永不因处理器出错而退出。
type Server struct {
	brokers       []string
	group         string
	maxDeliveries int
	sem           *semaphore.Weighted
	tracer        trace.Tracer

	mu     sync.Mutex
	routes []routeBinding

	writerMu sync.Mutex
	writers  map[string]*kafka.Writer

	// 测试中替换为内存实现
	publish func(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) error
}

// NewServer 创建服务端。maxInflight 限制同时在途的处理器执行数。
func NewServer(brokers []string, group string, maxInflight int64, maxDeliveries int) *Server {
	if maxInflight <= 0 {
		maxInflight = 32
	}
	if maxDeliveries <= 0 {
		maxDeliveries = 3
	}
	s := &Server{
		brokers:       brokers,
		group:         group,
		maxDeliveries: maxDeliveries,
		sem:           semaphore.NewWeighted(maxInflight),
		tracer:        otel.Tracer("rpc-server"),
		writers:       make(map[string]*kafka.Writer),
	}
	s.publish = s.publishKafka
	return s
}

// Register 把一个路由绑定到处理器。重复绑定视为编程错误。
func (s *Server) Register(route Route, handler HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.routes {
		if b.route.Key == route.Key {
			panic(fmt.Sprintf("rpc: route %s registered twice", route.Key))
		}
	}
	s.routes = append(s.routes, routeBinding{route: route, handler: handler})
}

// Run 为每个已注册路由启动一个消费循环，阻塞直到 ctx 取消。
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	bindings := make([]routeBinding, len(s.routes))
	copy(bindings, s.routes)
	s.mu.Unlock()

	if len(bindings) == 0 {
		return fmt.Errorf("rpc: no routes registered")
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, b := range bindings {
		b := b
		g.Go(func() error {
			return s.consumeLoop(ctx, b)
		})
	}
	return g.Wait()
}

func (s *Server) consumeLoop(ctx context.Context, b routeBinding) error {
	reader := mq.NewKafkaReader(s.brokers, b.route.Queue, s.group+"."+b.route.Queue)
	defer reader.Close()

	logger.L().Info().Str("route", b.route.Key).Str("queue", b.route.Queue).Msg("rpc server consuming")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.L().Error().Err(err).Str("queue", b.route.Queue).Msg("rpc server: fetch failed")
			time.Sleep(time.Second)
			continue
		}

		if err := s.sem.Acquire(ctx, 1); err != nil {
			return nil
		}
		go func(msg kafka.Message) {
			defer s.sem.Release(1)
			inflightHandlers.Inc()
			defer inflightHandlers.Dec()

			if s.handleMessage(ctx, b, msg) {
				if err := reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
					logger.L().Error().Err(err).Str("queue", b.route.Queue).Msg("rpc server: commit failed")
				}
			}
		}(msg)
	}
}

// handleMessage 处理一条请求消息，返回值表示是否应当提交位移。
// 只有消息被终结（成功应答、重投递或进死信）后才提交；
// 应答发布失败时不提交，等 broker 原样重投。
func (s *Server) handleMessage(parentCtx context.Context, b routeBinding, msg kafka.Message) bool {
	carrier := mq.KafkaHeaderCarrier(msg.Headers)
	ctx := otel.GetTextMapPropagator().Extract(parentCtx, &carrier)
	ctx, span := s.tracer.Start(ctx, "rpc.handle."+b.route.Key, trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	var env Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		// 信封都解不开的消息没有重投递价值，直接进死信
		logger.Ctx(ctx).Error().Err(err).Str("queue", b.route.Queue).Msg("rpc server: malformed envelope")
		return s.deadLetter(ctx, b.route, msg.Value, "malformed envelope: "+err.Error())
	}
	span.SetAttributes(attribute.String("rpc.correlation_id", env.CorrelationID))

	req, err := DecodeRequest(b.route.Key, env.Payload)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("op", env.Op).Msg("rpc server: undecodable payload")
		return s.deadLetter(ctx, b.route, msg.Value, err.Error())
	}

	resp, err := s.invoke(ctx, b.handler, req)
	if err != nil {
		handlerFailures.WithLabelValues(b.route.Key).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return s.handleFailure(ctx, b.route, msg, err)
	}

	// 没有应答地址的请求按单向消息处理
	if env.ReplyTopic == "" {
		return true
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("route", b.route.Key).Msg("rpc server: reply marshal failed")
		return s.deadLetter(ctx, b.route, msg.Value, "unmarshalable reply: "+err.Error())
	}
	reply := Envelope{
		CorrelationID: env.CorrelationID,
		Op:            b.route.Key,
		Payload:       payload,
	}
	value, _ := json.Marshal(&reply)

	if err := s.publish(ctx, env.ReplyTopic, []byte(env.CorrelationID), value); err != nil {
		// 不提交，保留原消息等待重投
		logger.Ctx(ctx).Error().Err(err).Str("reply_topic", env.ReplyTopic).Msg("rpc server: reply publish failed")
		return false
	}
	return true
}

// invoke 执行处理器并把 panic 转成错误，保证消费循环存活。
func (s *Server) invoke(ctx context.Context, h HandlerFunc, req interface{}) (resp interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, req)
}

// handleFailure 实现有限重投递：没到上限就带着次数头重新入队，
// 到了上限就连同错误一起落进死信 Topic。
func (s *Server) handleFailure(ctx context.Context, route Route, msg kafka.Message, cause error) bool {
	attempt := attemptFromHeaders(msg.Headers)
	if attempt >= s.maxDeliveries {
		logger.Ctx(ctx).Error().Err(cause).
			Str("route", route.Key).
			Int("attempt", attempt).
			Msg("rpc server: retries exhausted, dead-lettering")
		return s.deadLetter(ctx, route, msg.Value, cause.Error())
	}

	logger.Ctx(ctx).Warn().Err(cause).
		Str("route", route.Key).
		Int("attempt", attempt).
		Msg("rpc server: handler failed, redelivering")

	header := kafka.Header{Key: attemptHeader, Value: []byte(strconv.Itoa(attempt + 1))}
	if err := s.publish(ctx, route.Queue, msg.Key, msg.Value, header); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("route", route.Key).Msg("rpc server: redelivery publish failed")
		return false
	}
	return true
}

func (s *Server) deadLetter(ctx context.Context, route Route, value []byte, reason string) bool {
	deadLettered.WithLabelValues(route.Key).Inc()
	header := kafka.Header{Key: "x-error", Value: []byte(reason)}
	if err := s.publish(ctx, route.DLQTopic(), nil, value, header); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("route", route.Key).Msg("rpc server: dead letter publish failed")
		return false
	}
	return true
}

func attemptFromHeaders(headers []kafka.Header) int {
	for _, h := range headers {
		if h.Key == attemptHeader {
			if n, err := strconv.Atoi(string(h.Value)); err == nil {
				return n
			}
		}
	}
	return 1
}

func (s *Server) publishKafka(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) error {
	return mq.ProduceMessage(ctx, s.getWriter(topic), key, value, headers...)
}

func (s *Server) getWriter(topic string) *kafka.Writer {
	s.writerMu.Lock()
	defer s.writerMu.Unlock()
	w, ok := s.writers[topic]
	if !ok {
		w = mq.NewKafkaWriter(s.brokers, topic)
		s.writers[topic] = w
	}
	return w
}
