// Package feed ingests a live bar stream over WebSocket, implementing
// the same history.Source interface a replayed-from-SQL run does so
// internal/runner doesn't care which kind of source it was handed.
// Dials with a handshake timeout and decodes one bar per message,
// racing the read against context cancellation.
package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"barlang/internal/errs"
	"barlang/internal/vm"
)

const handshakeTimeout = 10 * time.Second

// wireBar is the JSON shape one message on the feed decodes into.
type wireBar struct {
	Timestamp float64 `json:"t"`
	Open      float64 `json:"o"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Close     float64 `json:"c"`
	Volume    float64 `json:"v"`
}

// WSFeed streams bars from a WebSocket connection, one JSON object per
// message, implementing history.Source.
type WSFeed struct {
	conn   *websocket.Conn
	url    string
	closed bool
}

// WebSocket dials url and returns a feed ready to stream bars.
func WebSocket(url string) (*WSFeed, error) {
	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = handshakeTimeout

	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, errs.Wrap(err, "feed: websocket dial failed")
	}
	return &WSFeed{conn: conn, url: url}, nil
}

// Next blocks for the next bar message, respecting ctx's cancellation by
// racing the blocking read against ctx.Done() on a background
// goroutine — gorilla/websocket has no context-aware read, so this is
// the idiomatic workaround for that gap.
func (f *WSFeed) Next(ctx context.Context) (vm.Bar, bool, error) {
	type readResult struct {
		data []byte
		err  error
	}
	done := make(chan readResult, 1)
	go func() {
		_, data, err := f.conn.ReadMessage()
		done <- readResult{data, err}
	}()

	select {
	case <-ctx.Done():
		return vm.Bar{}, false, ctx.Err()
	case r := <-done:
		if r.err != nil {
			if websocket.IsCloseError(r.err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return vm.Bar{}, false, nil
			}
			return vm.Bar{}, false, errs.Wrap(r.err, "feed: reading message")
		}
		var wb wireBar
		if err := json.Unmarshal(r.data, &wb); err != nil {
			return vm.Bar{}, false, errs.Wrap(err, "feed: decoding bar message")
		}
		bar := vm.Bar{Open: wb.Open, High: wb.High, Low: wb.Low, Close: wb.Close, Volume: wb.Volume}
		if wb.Timestamp != 0 {
			bar.Timestamp = time.Unix(int64(wb.Timestamp), 0)
		}
		return bar, true, nil
	}
}

// Close closes the underlying WebSocket connection.
func (f *WSFeed) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	return f.conn.Close()
}
