package detection

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"stepwise/internal/services"
)

// maxIdleConns bounds the websocket connections kept open between frames.
const maxIdleConns = 4

// WebsocketDetector talks to a detection server over websockets. Each frame
// is written as a binary message and answered by one JSON text message, so a
// connection carries one frame at a time. Concurrent sessions each take
// their own connection from a small idle pool.
type WebsocketDetector struct {
	url       string
	threshold float64
	timeout   time.Duration
	dialer    *websocket.Dialer

	mu     sync.Mutex
	idle   []*websocket.Conn
	closed bool
}

var _ Detector = (*WebsocketDetector)(nil)

// NewWebsocketDetector creates a detector that dials url lazily.
func NewWebsocketDetector(url string, threshold float64, timeout time.Duration) (*WebsocketDetector, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("detector url required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebsocketDetector{
		url:       url,
		threshold: threshold,
		timeout:   timeout,
		dialer:    &websocket.Dialer{HandshakeTimeout: timeout},
	}, nil
}

// Detect sends image and waits for the matching response. Cancelling ctx
// closes the connection and unblocks the read. Connections that fail or are
// cancelled mid-frame are discarded.
func (d *WebsocketDetector) Detect(ctx context.Context, image []byte) (Set, error) {
	conn, err := d.acquire(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrDetector, "detector", "dial", d.url, err)
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	message, err := d.roundTrip(ctx, conn, image)
	if !stop() {
		return nil, services.Wrap(services.ErrDetector, "detector", "read", "frame cancelled", ctx.Err())
	}
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	d.release(conn)

	set, err := DecodeResponse(message)
	if err != nil {
		return nil, services.Wrap(services.ErrDetector, "detector", "read", "", err)
	}
	return set.Filter(d.threshold), nil
}

func (d *WebsocketDetector) roundTrip(ctx context.Context, conn *websocket.Conn, image []byte) ([]byte, error) {
	deadline := time.Now().Add(d.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.SetReadDeadline(deadline)

	if err := conn.WriteMessage(websocket.BinaryMessage, image); err != nil {
		return nil, services.Wrap(services.ErrDetector, "detector", "write", "send frame", err)
	}
	_, message, err := conn.ReadMessage()
	if err != nil {
		return nil, services.Wrap(services.ErrDetector, "detector", "read", "receive detections", err)
	}
	return message, nil
}

// Close closes the idle connections. Connections in use are closed when
// their frame completes.
func (d *WebsocketDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	var errs []error
	for _, conn := range d.idle {
		errs = append(errs, conn.Close())
	}
	d.idle = nil
	return errors.Join(errs...)
}

func (d *WebsocketDetector) acquire(ctx context.Context) (*websocket.Conn, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, errors.New("detector closed")
	}
	if n := len(d.idle); n > 0 {
		conn := d.idle[n-1]
		d.idle = d.idle[:n-1]
		d.mu.Unlock()
		return conn, nil
	}
	d.mu.Unlock()

	conn, _, err := d.dialer.DialContext(ctx, d.url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (d *WebsocketDetector) release(conn *websocket.Conn) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || len(d.idle) >= maxIdleConns {
		_ = conn.Close()
		return
	}
	d.idle = append(d.idle, conn)
}
