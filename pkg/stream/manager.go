package stream

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/quantfade/longshot/pkg/types"
	"go.uber.org/zap"
)

// Manager manages a single WebSocket connection to the public trade feed.
type Manager struct {
	url             string
	conn            *websocket.Conn
	logger          *zap.Logger
	reconnectMgr    *ReconnectManager
	config          Config
	eventChan       chan types.TradeEvent
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	mu              sync.RWMutex
	commandID       atomic.Int64
	connected       atomic.Bool
	lastPongTime    atomic.Int64
	connectionStart atomic.Int64 // Unix timestamp of connection start
}

// Config holds WebSocket manager configuration.
type Config struct {
	URL                   string
	DialTimeout           time.Duration
	PongTimeout           time.Duration
	PingInterval          time.Duration
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
	ReconnectBackoffMult  float64
	EventBufferSize       int
	Logger                *zap.Logger
}

// subscribeCommand is the wire format for channel subscriptions.
type subscribeCommand struct {
	ID     int64           `json:"id"`
	Cmd    string          `json:"cmd"`
	Params subscribeParams `json:"params"`
}

type subscribeParams struct {
	Channels []string `json:"channels"`
}

// feedMessage is the envelope for every inbound frame.
type feedMessage struct {
	Type string       `json:"type"`
	Msg  tradePayload `json:"msg"`
}

type tradePayload struct {
	MarketTicker string `json:"market_ticker"`
	YesPrice     int    `json:"yes_price"`
	Count        int    `json:"count"`
	TakerSide    string `json:"taker_side"`
	Ts           int64  `json:"ts"`
}

// New creates a new stream manager.
func New(cfg Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	reconnectCfg := ReconnectConfig{
		InitialDelay:      cfg.ReconnectInitialDelay,
		MaxDelay:          cfg.ReconnectMaxDelay,
		BackoffMultiplier: cfg.ReconnectBackoffMult,
		JitterPercent:     0.2,
	}

	return &Manager{
		url:          cfg.URL,
		logger:       cfg.Logger,
		reconnectMgr: NewReconnectManager(reconnectCfg, cfg.Logger),
		config:       cfg,
		eventChan:    make(chan types.TradeEvent, cfg.EventBufferSize),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start starts the stream manager.
func (m *Manager) Start() error {
	m.logger.Info("stream-manager-starting", zap.String("url", m.url))

	// Initial connection
	err := m.connect(m.ctx)
	if err != nil {
		return fmt.Errorf("initial connection: %w", err)
	}

	err = m.subscribe()
	if err != nil {
		return fmt.Errorf("initial subscription: %w", err)
	}

	m.wg.Add(3)
	go m.readLoop()
	go m.pingLoop()
	go m.reconnectLoop()

	return nil
}

// connect establishes a WebSocket connection.
func (m *Manager) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: m.config.DialTimeout,
	}

	m.logger.Info("connecting-to-trade-feed", zap.String("url", m.url))

	conn, _, err := dialer.DialContext(ctx, m.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	conn.SetPongHandler(func(string) error {
		m.lastPongTime.Store(time.Now().Unix())
		return nil
	})

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	now := time.Now()
	m.connected.Store(true)
	m.lastPongTime.Store(now.Unix())
	m.connectionStart.Store(now.Unix())
	ActiveConnections.Set(1)

	m.logger.Info("trade-feed-connected")

	return nil
}

// subscribe sends the trade channel subscription command.
func (m *Manager) subscribe() error {
	cmd := subscribeCommand{
		ID:  m.commandID.Add(1),
		Cmd: "subscribe",
		Params: subscribeParams{
			Channels: []string{"trade"},
		},
	}

	m.mu.RLock()
	err := m.conn.WriteJSON(cmd)
	m.mu.RUnlock()

	if err != nil {
		return fmt.Errorf("write subscribe command: %w", err)
	}

	m.logger.Info("subscribed-to-trade-channel", zap.Int64("command-id", cmd.ID))

	return nil
}

// readLoop reads messages from the WebSocket.
func (m *Manager) readLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		m.mu.RLock()
		conn := m.conn
		m.mu.RUnlock()

		if conn == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			m.logger.Warn("read-error", zap.Error(err))

			// Observe connection duration before marking as disconnected
			startTime := m.connectionStart.Load()
			if startTime > 0 {
				duration := time.Since(time.Unix(startTime, 0)).Seconds()
				ConnectionDuration.Observe(duration)
			}

			m.connected.Store(false)
			ActiveConnections.Set(0)
			return
		}

		var feedMsg feedMessage
		err = json.Unmarshal(message, &feedMsg)
		if err != nil {
			previewLen := len(message)
			if previewLen > 100 {
				previewLen = 100
			}
			m.logger.Debug("trade-feed-unparseable-message",
				zap.Error(err),
				zap.Int("bytes", len(message)),
				zap.String("preview", string(message[:previewLen])))
			continue
		}

		MessagesReceivedTotal.WithLabelValues(feedMsg.Type).Inc()

		// Subscription acks, heartbeats and other control frames
		if feedMsg.Type != "trade" {
			m.logger.Debug("trade-feed-control-message",
				zap.String("type", feedMsg.Type),
				zap.Int("bytes", len(message)))
			continue
		}

		start := time.Now()
		event := types.TradeEvent{
			MarketTicker: feedMsg.Msg.MarketTicker,
			YesPrice:     feedMsg.Msg.YesPrice,
			Count:        feedMsg.Msg.Count,
			TakerSide:    feedMsg.Msg.TakerSide,
			Timestamp:    time.Unix(feedMsg.Msg.Ts, 0).UTC(),
		}

		// Send to channel (non-blocking)
		select {
		case m.eventChan <- event:
		default:
			m.logger.Warn("event-channel-full", zap.String("ticker", event.MarketTicker))
			EventsDroppedTotal.WithLabelValues("channel_full").Inc()
		}

		MessageLatencySeconds.Observe(time.Since(start).Seconds())
	}
}

// pingLoop sends periodic PING messages.
func (m *Manager) pingLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			if !m.connected.Load() {
				continue
			}

			m.mu.RLock()
			conn := m.conn
			m.mu.RUnlock()

			if conn == nil {
				continue
			}

			err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(time.Second))
			if err != nil {
				m.logger.Warn("ping-error", zap.Error(err))
			}
		}
	}
}

// reconnectLoop handles reconnection when connection drops.
func (m *Manager) reconnectLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		if m.connected.Load() {
			time.Sleep(time.Second)
			continue
		}

		m.logger.Warn("connection-lost-initiating-reconnect")

		err := m.reconnectMgr.Reconnect(m.ctx, m.connect)
		if err != nil {
			if err == context.Canceled {
				return
			}
			m.logger.Error("reconnection-failed", zap.Error(err))
			continue
		}

		// Resubscribe after reconnect
		err = m.subscribe()
		if err != nil {
			m.logger.Error("resubscribe-failed", zap.Error(err))
			m.connected.Store(false)
			continue
		}

		m.logger.Info("reconnection-complete-restarting-read-loop")

		m.wg.Add(1)
		go m.readLoop()
	}
}

// EventChan returns the channel for receiving trade events.
func (m *Manager) EventChan() <-chan types.TradeEvent {
	return m.eventChan
}

// Close gracefully closes the stream manager.
func (m *Manager) Close() error {
	m.logger.Info("closing-stream-manager")

	m.cancel()

	m.mu.RLock()
	if m.conn != nil {
		m.conn.Close()
	}
	m.mu.RUnlock()

	m.wg.Wait()

	close(m.eventChan)

	ActiveConnections.Set(0)

	m.logger.Info("stream-manager-closed")

	return nil
}
