package progress

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/tsflow/internal/ctxlog"
	"github.com/specialistvlad/tsflow/internal/diag"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Socket.io event names emitted by the publisher.
const (
	EventRunStarted       = "run_started"
	EventCommandStarted   = "command_started"
	EventCommandCompleted = "command_completed"
	EventRunFinished      = "run_finished"
)

// SocketIOOptions configures a SocketIO publisher.
type SocketIOOptions struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// SocketIO publishes progress events to a socket.io server.
type SocketIO struct {
	io *socket.Socket
}

// DialSocketIO connects to the server and waits for the connection to be
// established.
func DialSocketIO(ctx context.Context, opts SocketIOOptions) (*SocketIO, error) {
	logger := ctxlog.FromContext(ctx).With("listener", "socketio", "url", opts.URL)

	parsedURL, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("progress URL %q needs a scheme and host", opts.URL)
	}
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	sopts := socket.DefaultOptions()
	sopts.SetPath(parsedURL.Path)
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sopts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sopts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, sopts)
	io := manager.Socket(opts.Namespace, sopts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Connected to progress server", "sid", io.Id())
		select {
		case connectChan <- nil:
		default:
		}
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case connectChan <- err:
		default:
		}
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return &SocketIO{io: io}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}
}

func (s *SocketIO) RunStarted(ctx context.Context, ev Event) {
	s.emit(ctx, EventRunStarted, ev)
}

func (s *SocketIO) CommandStarted(ctx context.Context, ev Event) {
	s.emit(ctx, EventCommandStarted, ev)
}

func (s *SocketIO) CommandCompleted(ctx context.Context, ev Event) {
	s.emit(ctx, EventCommandCompleted, ev)
}

func (s *SocketIO) RunFinished(ctx context.Context, ev Event) {
	s.emit(ctx, EventRunFinished, ev)
}

func (s *SocketIO) emit(ctx context.Context, name string, ev Event) {
	ctxlog.FromContext(ctx).Debug("Publishing progress event", "event", name, "index", ev.Index)
	s.io.Emit(name, Payload(ev))
}

// Close disconnects from the server.
func (s *SocketIO) Close() error {
	s.io.Disconnect()
	return nil
}

// Payload renders an event as the JSON-friendly map sent over the wire.
func Payload(ev Event) map[string]any {
	m := map[string]any{
		"run_id": ev.RunID,
		"phase":  ev.Phase.String(),
		"total":  ev.Total,
		"time":   ev.Time.UTC().Format(time.RFC3339Nano),
	}
	if ev.Index >= 0 {
		m["index"] = ev.Index
		m["command"] = ev.Command
	}
	if ev.Severity != diag.Unknown {
		m["severity"] = ev.Severity.String()
	}
	if ev.Canceled {
		m["canceled"] = true
	}
	return m
}
