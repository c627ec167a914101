package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
)

type publishedMsg struct {
	key     []byte
	value   []byte
	headers []kafka.Header
}

// fakeBus records messages per topic instead of talking to a broker.
type fakeBus struct {
	mu     sync.Mutex
	topics map[string][]publishedMsg
	fail   bool
}

func newFakeBus() *fakeBus {
	return &fakeBus{topics: make(map[string][]publishedMsg)}
}

func (b *fakeBus) publish(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return errors.New("broker unavailable")
	}
	b.topics[topic] = append(b.topics[topic], publishedMsg{key: key, value: value, headers: headers})
	return nil
}

func (b *fakeBus) messages(topic string) []publishedMsg {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]publishedMsg(nil), b.topics[topic]...)
}

func newTestServer(bus *fakeBus) *Server {
	s := NewServer(nil, "test-group", 4, 3)
	s.publish = bus.publish
	return s
}

func requestMessage(t *testing.T, route Route, corrID string, req interface{}, attempt int) kafka.Message {
	t.Helper()
	payload, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	env := Envelope{
		CorrelationID: corrID,
		ReplyTopic:    "rpc.reply.test",
		Op:            route.Key,
		Payload:       payload,
	}
	value, _ := json.Marshal(&env)
	msg := kafka.Message{Value: value}
	if attempt > 0 {
		msg.Headers = append(msg.Headers, kafka.Header{Key: attemptHeader, Value: []byte(strconv.Itoa(attempt))})
	}
	return msg
}

func TestHandleMessage_RepliesWithSameCorrelationID(t *testing.T) {
	bus := newFakeBus()
	s := newTestServer(bus)
	binding := routeBinding{
		route: RouteCheckUser,
		handler: func(ctx context.Context, req interface{}) (interface{}, error) {
			r := req.(*CheckUserRequest)
			return &CheckUserResponse{Exists: r.UserID == "u-known"}, nil
		},
	}

	ok := s.handleMessage(context.Background(), binding, requestMessage(t, RouteCheckUser, "corr-1", &CheckUserRequest{UserID: "u-known"}, 0))
	if !ok {
		t.Fatal("expected message to be committable")
	}

	replies := bus.messages("rpc.reply.test")
	if len(replies) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(replies))
	}
	var reply Envelope
	if err := json.Unmarshal(replies[0].value, &reply); err != nil {
		t.Fatalf("unmarshal reply: %v", err)
	}
	if reply.CorrelationID != "corr-1" {
		t.Errorf("expected correlation id corr-1, got %q", reply.CorrelationID)
	}
	var resp CheckUserResponse
	if err := json.Unmarshal(reply.Payload, &resp); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if !resp.Exists {
		t.Error("expected exists=true in reply")
	}
}

func TestHandleMessage_FailureRedeliversWithAttemptHeader(t *testing.T) {
	bus := newFakeBus()
	s := newTestServer(bus)
	binding := routeBinding{
		route: RouteCheckCoupon,
		handler: func(ctx context.Context, req interface{}) (interface{}, error) {
			return nil, errors.New("database down")
		},
	}

	ok := s.handleMessage(context.Background(), binding, requestMessage(t, RouteCheckCoupon, "corr-2", &CheckCouponRequest{Code: "X"}, 0))
	if !ok {
		t.Fatal("redelivered message should still be committed")
	}

	redelivered := bus.messages(RouteCheckCoupon.Queue)
	if len(redelivered) != 1 {
		t.Fatalf("expected 1 redelivery, got %d", len(redelivered))
	}
	found := false
	for _, h := range redelivered[0].headers {
		if h.Key == attemptHeader && string(h.Value) == "2" {
			found = true
		}
	}
	if !found {
		t.Error("expected attempt header bumped to 2")
	}
	if len(bus.messages(RouteCheckCoupon.DLQTopic())) != 0 {
		t.Error("first failure must not dead-letter")
	}
}

func TestHandleMessage_ExhaustedRetriesGoToDLQ(t *testing.T) {
	bus := newFakeBus()
	s := newTestServer(bus)
	binding := routeBinding{
		route: RouteCheckCoupon,
		handler: func(ctx context.Context, req interface{}) (interface{}, error) {
			return nil, errors.New("still broken")
		},
	}

	ok := s.handleMessage(context.Background(), binding, requestMessage(t, RouteCheckCoupon, "corr-3", &CheckCouponRequest{Code: "X"}, 3))
	if !ok {
		t.Fatal("dead-lettered message should be committed")
	}

	dlq := bus.messages(RouteCheckCoupon.DLQTopic())
	if len(dlq) != 1 {
		t.Fatalf("expected 1 dead letter, got %d", len(dlq))
	}
	var hasError bool
	for _, h := range dlq[0].headers {
		if h.Key == "x-error" && len(h.Value) > 0 {
			hasError = true
		}
	}
	if !hasError {
		t.Error("expected error header on dead letter")
	}
	if len(bus.messages(RouteCheckCoupon.Queue)) != 0 {
		t.Error("exhausted message must not be redelivered again")
	}
}

func TestHandleMessage_PanicIsIsolated(t *testing.T) {
	bus := newFakeBus()
	s := newTestServer(bus)
	binding := routeBinding{
		route: RouteStockAvailability,
		handler: func(ctx context.Context, req interface{}) (interface{}, error) {
			panic("boom")
		},
	}

	// Must not propagate the panic.
	ok := s.handleMessage(context.Background(), binding, requestMessage(t, RouteStockAvailability, "corr-4", &StockAvailabilityRequest{ProductID: "p", Quantity: 1}, 0))
	if !ok {
		t.Fatal("panicking handler should still terminate the message")
	}
	if len(bus.messages(RouteStockAvailability.Queue)) != 1 {
		t.Error("expected the message to be redelivered after a panic")
	}
}

func TestHandleMessage_MalformedEnvelopeDeadLettersImmediately(t *testing.T) {
	bus := newFakeBus()
	s := newTestServer(bus)
	binding := routeBinding{
		route:   RouteCheckUser,
		handler: func(ctx context.Context, req interface{}) (interface{}, error) { return &CheckUserResponse{}, nil },
	}

	ok := s.handleMessage(context.Background(), binding, kafka.Message{Value: []byte("not json")})
	if !ok {
		t.Fatal("malformed message should be committed after dead-lettering")
	}
	if len(bus.messages(RouteCheckUser.DLQTopic())) != 1 {
		t.Error("expected malformed envelope in DLQ")
	}
}

func TestHandleMessage_ReplyPublishFailureLeavesMessageUncommitted(t *testing.T) {
	bus := newFakeBus()
	bus.fail = true
	s := newTestServer(bus)
	binding := routeBinding{
		route:   RouteCheckUser,
		handler: func(ctx context.Context, req interface{}) (interface{}, error) { return &CheckUserResponse{Exists: true}, nil },
	}

	ok := s.handleMessage(context.Background(), binding, requestMessage(t, RouteCheckUser, "corr-5", &CheckUserRequest{UserID: "u"}, 0))
	if ok {
		t.Fatal("message must stay uncommitted when the reply cannot be published")
	}
}

func TestRegister_DuplicateRoutePanics(t *testing.T) {
	s := newTestServer(newFakeBus())
	s.Register(RouteCheckUser, func(ctx context.Context, req interface{}) (interface{}, error) { return nil, nil })

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate route registration")
		}
	}()
	s.Register(RouteCheckUser, func(ctx context.Context, req interface{}) (interface{}, error) { return nil, nil })
}
