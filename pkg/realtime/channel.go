// Package realtime implements the storefront's real-time event channel: a
// websocket connection delivering {"event", "data"} frames to subscribers.
// Delivery is at-least-once, so subscribers must tolerate duplicates.
//
// Package realtime 实现店面的实时事件通道：通过websocket连接把 {"event", "data"} 帧分发给订阅者。
// 投递语义为至少一次，订阅者必须能够容忍重复事件。
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yourusername/shopsync/internal/metrics"
	shoperrors "github.com/yourusername/shopsync/pkg/errors"
	"github.com/yourusername/shopsync/pkg/model"
)

// Event names.
//
// 事件名称。
const (
	EventProductCreated = "product:created"
	EventProductUpdated = "product:updated"
	EventProductDeleted = "product:deleted"

	EventReviewCreated = "review:created"
	EventReviewUpdated = "review:updated"
	EventReviewDeleted = "review:deleted"
)

// Default reconnect backoff bounds.
const (
	DefaultMinBackoff = 500 * time.Millisecond
	DefaultMaxBackoff = 30 * time.Second
)

// Frame is a message on the channel.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Handler receives the raw payload of an event.
type Handler func(data json.RawMessage)

type subscription struct {
	id      uint64
	handler Handler
}

// Channel is a reconnecting websocket subscriber.
//
// Channel 是一个自动重连的websocket订阅端。
type Channel struct {
	url        string
	header     http.Header
	dialer     *websocket.Dialer
	logger     *slog.Logger
	metrics    *metrics.Metrics
	minBackoff time.Duration
	maxBackoff time.Duration

	mu       sync.RWMutex
	handlers map[string][]subscription
	nextID   uint64

	connected atomic.Bool
}

// Option configures a Channel.
type Option func(*Channel)

// WithToken sends the bearer token in the handshake.
func WithToken(token string) Option {
	return func(c *Channel) {
		if token != "" {
			c.header.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithBackoff sets the reconnect backoff bounds.
func WithBackoff(min, max time.Duration) Option {
	return func(c *Channel) {
		c.minBackoff = min
		c.maxBackoff = max
	}
}

// WithDialer replaces the websocket dialer.
func WithDialer(dialer *websocket.Dialer) Option {
	return func(c *Channel) {
		c.dialer = dialer
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Channel) {
		c.logger = logger
	}
}

// WithMetrics records dispatched, dropped and reconnect counts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Channel) {
		c.metrics = m
	}
}

// NewChannel creates a channel for the websocket endpoint at rawURL.
// The connection is opened by Run.
//
// NewChannel 为rawURL处的websocket端点创建通道，连接由Run建立。
//
// Parameters:
//   - rawURL: A ws:// or wss:// URL
//   - options: Optional configuration
//
// Returns:
//   - *Channel: A new channel
//   - error: An error if the URL or the backoff bounds are invalid
func NewChannel(rawURL string, options ...Option) (*Channel, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "ws" && parsed.Scheme != "wss") {
		return nil, fmt.Errorf("realtime: invalid socket url %q", rawURL)
	}

	c := &Channel{
		url:        rawURL,
		header:     http.Header{},
		dialer:     websocket.DefaultDialer,
		logger:     slog.Default(),
		minBackoff: DefaultMinBackoff,
		maxBackoff: DefaultMaxBackoff,
		handlers:   make(map[string][]subscription),
	}
	for _, option := range options {
		option(c)
	}
	if c.minBackoff <= 0 || c.maxBackoff < c.minBackoff {
		return nil, fmt.Errorf("realtime: invalid backoff %s..%s", c.minBackoff, c.maxBackoff)
	}
	c.logger = c.logger.With("component", "realtime")
	return c, nil
}

// SocketURL derives the socket endpoint from the REST base URL:
// http becomes ws, https becomes wss, and the path /socket is appended.
//
// SocketURL 根据REST基础地址推导socket端点：http变为ws，https变为wss，并追加/socket路径。
func SocketURL(baseURL string) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("realtime: unsupported scheme %q", parsed.Scheme)
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/socket"
	return parsed.String(), nil
}

// On subscribes handler to event and returns a function that removes the subscription.
// Handlers of one event run in subscription order on the reader goroutine.
//
// On 为event订阅handler，并返回取消订阅的函数。
// 同一事件的处理器在读取协程上按订阅顺序执行。
func (c *Channel) On(event string, handler Handler) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.handlers[event] = append(c.handlers[event], subscription{id: id, handler: handler})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { c.off(event, id) })
	}
}

// OnProductCreated subscribes to product:created with a decoded product.
func (c *Channel) OnProductCreated(fn func(model.Product)) func() {
	return c.On(EventProductCreated, c.productHandler(EventProductCreated, fn))
}

// OnProductUpdated subscribes to product:updated with a decoded product.
func (c *Channel) OnProductUpdated(fn func(model.Product)) func() {
	return c.On(EventProductUpdated, c.productHandler(EventProductUpdated, fn))
}

// OnProductDeleted subscribes to product:deleted with the decoded product id.
func (c *Channel) OnProductDeleted(fn func(id string)) func() {
	return c.On(EventProductDeleted, func(data json.RawMessage) {
		id, err := DecodeDeletedID(data)
		if err != nil {
			c.drop(EventProductDeleted, err)
			return
		}
		fn(id)
	})
}

func (c *Channel) productHandler(event string, fn func(model.Product)) Handler {
	return func(data json.RawMessage) {
		p, err := DecodeProduct(data)
		if err != nil {
			c.drop(event, err)
			return
		}
		fn(p)
	}
}

// Dispatch decodes one frame and delivers it to the subscribers of its event.
// A panicking handler is recovered and logged; the other handlers still run.
//
// Dispatch 解码一个消息帧并分发给对应事件的订阅者。
// 处理器发生panic时会被恢复并记录日志，其他处理器仍会执行。
func (c *Channel) Dispatch(raw []byte) error {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil || frame.Event == "" {
		c.metrics.RecordDroppedEvent()
		if err == nil {
			err = fmt.Errorf("missing event name")
		}
		return fmt.Errorf("%w: %v", shoperrors.ErrInvalidEvent, err)
	}

	c.mu.RLock()
	subs := make([]subscription, len(c.handlers[frame.Event]))
	copy(subs, c.handlers[frame.Event])
	c.mu.RUnlock()

	c.metrics.RecordEvent()
	for _, sub := range subs {
		c.invoke(frame.Event, sub.handler, frame.Data)
	}
	return nil
}

// Connected reports whether the socket is currently open.
func (c *Channel) Connected() bool {
	return c.connected.Load()
}

// Run keeps the socket open until ctx is cancelled, reconnecting with capped
// exponential backoff. It returns ctx.Err().
//
// Run 保持socket连接直到ctx被取消，断开后以有上限的指数退避重连。返回ctx.Err()。
func (c *Channel) Run(ctx context.Context) error {
	backoff := c.minBackoff
	for {
		opened, err := c.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if opened {
			backoff = c.minBackoff
		}

		c.metrics.RecordReconnect()
		c.logger.Warn("socket disconnected, reconnecting", "error", err, "backoff", backoff)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
		if backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}
}

// session dials once and reads frames until the connection fails.
func (c *Channel) session(ctx context.Context) (bool, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	c.connected.Store(true)
	defer c.connected.Store(false)
	c.logger.Info("socket connected", "url", c.url)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		if err := c.Dispatch(raw); err != nil {
			c.logger.Warn("dropping frame", "error", err)
		}
	}
}

func (c *Channel) invoke(event string, handler Handler, data json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("event handler panicked", "event", event, "panic", r)
		}
	}()
	handler(data)
}

func (c *Channel) drop(event string, err error) {
	c.metrics.RecordDroppedEvent()
	c.logger.Warn("dropping event with unusable payload", "event", event, "error", err)
}

func (c *Channel) off(event string, id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	subs := c.handlers[event]
	for i, sub := range subs {
		if sub.id == id {
			c.handlers[event] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(c.handlers[event]) == 0 {
		delete(c.handlers, event)
	}
}

// DecodeProduct decodes a product payload. A product without an id is invalid.
//
// DecodeProduct 解码商品数据，没有ID的商品视为无效。
func DecodeProduct(data json.RawMessage) (model.Product, error) {
	var p model.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return model.Product{}, fmt.Errorf("%w: %v", shoperrors.ErrInvalidEvent, err)
	}
	if p.ID == "" {
		return model.Product{}, fmt.Errorf("%w: product without id", shoperrors.ErrInvalidEvent)
	}
	return p, nil
}

// DecodeDeletedID decodes a deletion payload, either a bare id string or an
// object carrying "_id" (or "id").
//
// DecodeDeletedID 解码删除事件的数据，可以是ID字符串，也可以是包含"_id"（或"id"）的对象。
func DecodeDeletedID(data json.RawMessage) (string, error) {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		if id == "" {
			return "", fmt.Errorf("%w: empty id", shoperrors.ErrInvalidEvent)
		}
		return id, nil
	}

	var obj struct {
		UnderscoreID string `json:"_id"`
		ID           string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return "", fmt.Errorf("%w: %v", shoperrors.ErrInvalidEvent, err)
	}
	if obj.UnderscoreID != "" {
		return obj.UnderscoreID, nil
	}
	if obj.ID != "" {
		return obj.ID, nil
	}
	return "", fmt.Errorf("%w: deletion without id", shoperrors.ErrInvalidEvent)
}
