package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"stepwise/internal/api"
	"stepwise/internal/logging"
	"stepwise/internal/services"
	"stepwise/internal/session"
	"stepwise/internal/tasks"
)

const (
	maxFrameMessageBytes = 16 << 20
	frameWriteTimeout    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 << 10,
	WriteBufferSize: 64 << 10,
}

// frameConn serializes writes; the hand-off waiter writes concurrently with
// the read loop.
type frameConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *frameConn) send(msg api.ToClient) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(frameWriteTimeout))
	return c.conn.WriteJSON(msg)
}

// frameSession binds one websocket client to its controller.
type frameSession struct {
	d       *Daemon
	variant *tasks.Variant
	ctrl    *session.Controller
	conn    *frameConn
	logger  *slog.Logger

	mu    sync.Mutex
	token string
}

// handleFrames upgrades to a websocket and runs one session per connection.
// ?task= picks the variant; the configured default is used otherwise.
func (d *Daemon) handleFrames(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("task"))
	if name == "" {
		name = d.cfg.Tasks.Default
	}
	variant, err := d.registry.Get(name)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: err.Error(), Status: string(services.StatusFor(err))})
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.logger.Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	defer ws.Close()
	ws.SetReadLimit(maxFrameMessageBytes)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl := session.New(variant, d.detector,
		session.WithLogger(logging.NewComponentLogger(d.logger, "session")),
		session.WithValidator(d.validator),
	)
	ctx = services.WithTask(services.WithSessionID(ctx, ctrl.ID()), variant.Name)
	fs := &frameSession{
		d:       d,
		variant: variant,
		ctrl:    ctrl,
		conn:    &frameConn{conn: ws},
		logger:  logging.WithContext(ctx, d.logger),
	}
	d.sessions.add(ctrl)
	defer d.sessions.remove(ctrl.ID())
	defer fs.cancelHandoff()

	fs.logger.Info("session connected",
		logging.String(logging.FieldEventType, "session_connected"),
		logging.String("remote", r.RemoteAddr),
	)
	if err := fs.conn.send(fs.greeting()); err != nil {
		return
	}

	for {
		kind, data, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				fs.logger.Debug("session read ended", logging.Error(err))
			}
			break
		}
		reply, ok := fs.dispatch(ctx, kind, data)
		if !ok {
			continue
		}
		if err := fs.conn.send(reply); err != nil {
			fs.logger.Debug("session write failed", logging.Error(err))
			break
		}
	}
	fs.logger.Info("session disconnected", logging.String(logging.FieldEventType, "session_disconnected"))
}

// greeting carries the initial instruction so the client can render it
// before the first frame.
func (fs *frameSession) greeting() api.ToClient {
	snap := fs.ctrl.Snapshot()
	payload := snap.Step.Payload()
	return api.ToClient{
		Status:  string(services.StatusSuccess),
		Results: api.ResultItems(&payload, "", fs.d.images),
		State:   api.FromState(fs.variant.Catalog, snap.State),
		Done:    snap.Done,
	}
}

// dispatch handles one client message. Binary messages are raw frames. The
// bool is false when there is nothing to send back.
func (fs *frameSession) dispatch(ctx context.Context, kind int, data []byte) (api.ToClient, bool) {
	if kind == websocket.BinaryMessage {
		return fs.frame(ctx, data), true
	}
	var msg api.ToServer
	if err := json.Unmarshal(data, &msg); err != nil {
		return fs.failure(services.Wrap(services.ErrInvalidInputFormat, "session", "decode", "malformed message", err)), true
	}
	switch msg.Type {
	case api.MessageFrame:
		if msg.PayloadType != "" && msg.PayloadType != api.PayloadImage {
			return fs.failure(services.Wrap(services.ErrInvalidInputFormat, "session", "frame",
				"payload type "+msg.PayloadType+" is not an image", nil)), true
		}
		return fs.frame(ctx, msg.Payload), true
	case api.MessageStart:
		fs.cancelHandoff()
		return fs.reply(fs.ctrl.Restart()), true
	case api.MessageRestore:
		if msg.State == nil {
			return fs.failure(services.Wrap(services.ErrInvalidInputFormat, "session", "restore", "state required", nil)), true
		}
		st, err := api.ToState(fs.variant.Catalog, *msg.State)
		if err != nil {
			return fs.failure(err), true
		}
		fs.cancelHandoff()
		res, err := fs.ctrl.Restore(st)
		if err != nil {
			return fs.failure(err), true
		}
		return fs.reply(res), true
	case api.MessageHandoffStart:
		return fs.startHandoff(ctx), true
	case api.MessageHandoffStop:
		fs.logger.Info("client left hand-off call",
			logging.String(logging.FieldEventType, "handoff_client_left"),
			logging.Bool("awaiting_report", fs.ctrl.Suspended()),
		)
		return api.ToClient{}, false
	default:
		return fs.failure(services.Wrap(services.ErrInvalidInputFormat, "session", "decode",
			"unknown message type "+msg.Type, nil)), true
	}
}

func (fs *frameSession) frame(ctx context.Context, image []byte) api.ToClient {
	res, err := fs.ctrl.HandleFrame(ctx, image)
	if err != nil {
		if errors.Is(err, services.ErrDetector) {
			logging.WarnWithContext(fs.logger, "detector call failed", "detector_failed",
				logging.Error(err),
				logging.Hint("check detector.url and the detection service"),
				logging.Impact("frame dropped, session state unchanged"),
			)
		}
		return fs.failure(err)
	}
	if res.Discarded {
		fs.logger.Debug("frame discarded", logging.Bool("suspended", fs.ctrl.Suspended()))
	}
	return fs.reply(res)
}

// startHandoff suspends the session, opens a desk ticket and waits for the
// expert's report in the background.
func (fs *frameSession) startHandoff(ctx context.Context) api.ToClient {
	if !fs.d.cfg.Handoff.Enabled {
		return fs.failure(services.Wrap(services.ErrConfiguration, "session", "handoff", "hand-off disabled", nil))
	}
	token, step, err := fs.ctrl.Suspend()
	if err != nil {
		return fs.failure(err)
	}
	ticket := fs.d.desk.Open(token, fs.ctrl.ID(), fs.variant.Name, step.Name)
	fs.mu.Lock()
	fs.token = token
	fs.mu.Unlock()

	go fs.awaitHandoff(ctx, token)

	msg := api.ToClient{
		Status:  string(services.StatusSuccess),
		State:   api.FromState(fs.variant.Catalog, fs.ctrl.State()),
		Handoff: api.HandoffInfoFor(ticket),
	}
	return msg
}

func (fs *frameSession) awaitHandoff(ctx context.Context, token string) {
	step, err := fs.d.desk.Await(ctx, token)
	fs.mu.Lock()
	if fs.token == token {
		fs.token = ""
	}
	fs.mu.Unlock()

	var msg api.ToClient
	switch {
	case err == nil:
		res, resumeErr := fs.ctrl.Resume(token, step)
		if resumeErr != nil {
			if !fs.ctrl.Abandon(token) {
				return
			}
			msg = fs.failure(resumeErr)
			break
		}
		msg = fs.reply(res)
	case ctx.Err() != nil:
		return
	case errors.Is(err, services.ErrUnknownToken):
		// cancelled by a restart or restore; the session already moved on
		return
	default:
		if !fs.ctrl.Abandon(token) {
			// a newer hand-off or a restart owns the session now
			return
		}
		msg = fs.greeting()
		msg.Error = err.Error()
	}
	if sendErr := fs.conn.send(msg); sendErr != nil {
		fs.logger.Debug("hand-off result not delivered", logging.Error(sendErr))
	}
}

func (fs *frameSession) cancelHandoff() {
	fs.mu.Lock()
	token := fs.token
	fs.token = ""
	fs.mu.Unlock()
	if token != "" {
		fs.d.desk.Cancel(token)
	}
}

func (fs *frameSession) reply(res session.Result) api.ToClient {
	return api.FromResult(fs.variant.Catalog, res, fs.d.images)
}

func (fs *frameSession) failure(err error) api.ToClient {
	return api.FromError(fs.variant.Catalog, fs.ctrl.State(), err)
}
