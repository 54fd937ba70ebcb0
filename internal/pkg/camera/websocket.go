package camera

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/face"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/metrics"
	"github.com/gorilla/websocket"
)

const (
	maxFrameBytes = 2 << 20
	pongWait      = 30 * time.Second
	pingPeriod    = pongWait * 9 / 10
	writeWait     = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 << 10,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Upgrade switches the request to a websocket carrying camera frames.
func Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return upgrader.Upgrade(w, r, nil)
}

// Ingest reads binary JPEG/PNG messages from conn into feed until the peer
// disconnects, the feed closes or ctx is done. Undecodable frames are skipped.
func Ingest(ctx context.Context, conn *websocket.Conn, feed *FeedSource, kioskID string) error {
	defer conn.Close()

	conn.SetReadLimit(maxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go keepAlive(ctx, conn, done)

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		if kind != websocket.BinaryMessage {
			continue
		}

		metrics.FramesReceived.WithLabelValues(kioskID).Inc()
		if err := feed.PushEncoded(data); err != nil {
			if errors.Is(err, face.ErrSourceClosed) {
				return nil
			}
			slog.Debug("Dropping camera frame", "kiosk_id", kioskID, "error", err)
		}
	}
}

// keepAlive pings the peer and closes the connection once ctx is done so the
// blocked reader returns.
func keepAlive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
				time.Now().Add(writeWait))
			conn.Close()
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
