// Package exchange holds the venue connectivity: the market data websocket
// feed and the signed REST order client.
package exchange

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yanun0323/logs"

	"github.com/Xtley001/front-run-vanilla/internal/model"
)

const (
	feedReadLimit    = 1 << 20
	feedReadTimeout  = 30 * time.Second
	feedWriteTimeout = 5 * time.Second
	feedPingInterval = 15 * time.Second

	reconnectBase = time.Second
	reconnectMax  = 60 * time.Second
)

// Publisher accepts market events from the feed. The bus implements it.
type Publisher interface {
	TryPublish(ev *model.MarketEvent) bool
}

// Feed maintains a combined depth and trade stream with automatic
// reconnect.
type Feed struct {
	url string
	out Publisher
	now func() time.Time
}

// NewFeed subscribes to the 100ms depth diff stream and the aggregated
// trade stream for one symbol. wsEndpoint is the scheme and host, e.g.
// wss://fstream.binance.com.
func NewFeed(wsEndpoint, symbol string, out Publisher) *Feed {
	lower := strings.ToLower(symbol)
	url := fmt.Sprintf("%s/stream?streams=%s@depth@100ms/%s@aggTrade",
		strings.TrimRight(wsEndpoint, "/"), lower, lower)
	return &Feed{
		url: url,
		out: out,
		now: time.Now,
	}
}

// Run connects and consumes until the context ends, reconnecting with
// exponential backoff on any failure.
func (f *Feed) Run(ctx context.Context) error {
	backoff := reconnectBase
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		logs.Infof("connecting market data feed: %s", f.url)

		err := f.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logs.Warnf("feed disconnected, retrying in %s: %+v", backoff, err)
		f.publish(&model.MarketEvent{Kind: model.EventDisconnected, Recv: f.now()})

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff = min(backoff*2, reconnectMax)
	}
}

func (f *Feed) consume(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	logs.Info("market data feed connected")
	f.publish(&model.MarketEvent{Kind: model.EventConnected, Recv: f.now()})

	conn.SetReadLimit(feedReadLimit)
	_ = conn.SetReadDeadline(f.now().Add(feedReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(f.now().Add(feedReadTimeout))
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(feedPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		ev, err := parseMarketMessage(message, f.now())
		if err != nil {
			logs.Warnf("skip malformed feed message: %+v", err)
			continue
		}
		if ev == nil {
			continue
		}
		f.publish(ev)
	}
}

func (f *Feed) publish(ev *model.MarketEvent) {
	if !f.out.TryPublish(ev) {
		logs.Warnf("event bus full, dropping %s event", ev.Kind)
	}
}
