// Package socketio provides a stage that talks to Socket.IO servers.
package socketio

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/stagegrid/internal/argument"
	"github.com/vk/stagegrid/internal/ctxlog"
	"github.com/vk/stagegrid/internal/pattern"
	"github.com/vk/stagegrid/internal/registry"
	"github.com/vk/stagegrid/internal/scope"
	"github.com/vk/stagegrid/internal/stage"
	"github.com/vk/stagegrid/internal/storage"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the Emit stage.
func (m *Module) Register(r *registry.Registry) {
	r.MustRegister(Emit)
}

// Emit connects to a Socket.IO server, emits an event and optionally waits
// for a reply event.
var Emit = &stage.Definition{
	Name: "Emit",
	Description: "Emit a Socket.IO event.\n\n" +
		"The payload is data merged with the scope values named by keys. " +
		"When on_event is set the stage waits for that event and stores its first argument under key.",
	Args: []*argument.Argument{
		argument.MustNew(argument.Argument{Name: "url", Abbreviation: "-u", Type: pattern.String, Required: true, Help: "server URL including the socket.io path"}),
		argument.MustNew(argument.Argument{Name: "namespace", Type: pattern.String, Default: "/", Help: "namespace to join"}),
		argument.MustNew(argument.Argument{Name: "event", Abbreviation: "-e", Type: pattern.String, Required: true, Help: "event to emit"}),
		argument.MustNew(argument.Argument{Name: "keys", Abbreviation: "-k", Type: pattern.List{pattern.String}, Help: "scope keys added to the payload"}),
		argument.MustNew(argument.Argument{Name: "data", Type: pattern.Dict{{Key: pattern.String, Value: pattern.Any}}, Help: "static payload entries"}),
		argument.MustNew(argument.Argument{Name: "on_event", Type: pattern.String, Default: "", Help: "reply event to wait for"}),
		argument.MustNew(argument.Argument{Name: "key", Type: pattern.String, Default: "reply", Help: "scope key for the reply"}),
		argument.MustNew(argument.Argument{
			Name:        "timeout",
			Type:        pattern.Float,
			Default:     10.0,
			ValidValues: argument.Range{Min: 0, Max: 3600, Inclusive: [2]bool{false, true}},
			Help:        "seconds to wait for the connection and reply",
		}),
		argument.MustNew(argument.Argument{Name: "insecure_skip_verify", Type: pattern.Bool, Default: false, Help: "skip TLS certificate verification"}),
	},
	Build: func(b stage.Base) stage.Stage { return &emit{Base: b} },
}

type emit struct {
	stage.Base
}

// opResult is passed through the done channel.
type opResult struct {
	value any
	err   error
}

// payload merges the data argument with the selected scope values.
func (e *emit) payload(sc *scope.Scope) (map[string]any, error) {
	out := make(map[string]any)
	data, _ := e.Value("data")
	if m, ok := pattern.JSONValue(data).(map[string]any); ok {
		for k, v := range m {
			out[k] = v
		}
	}
	for _, k := range e.Texts("keys") {
		v, err := sc.Get(k)
		if err != nil {
			return nil, err
		}
		out[k] = pattern.JSONValue(v)
	}
	return out, nil
}

func (e *emit) Run(ctx context.Context, sc *scope.Scope, _ storage.Storage) error {
	rawURL, event, onEvent := e.Text("url"), e.Text("event"), e.Text("on_event")
	logger := ctxlog.FromContext(ctx).With("url", rawURL, "event", event, "onEvent", onEvent)
	logger.Debug("Emit started")
	defer logger.Debug("Emit finished")

	payload, err := e.payload(sc)
	if err != nil {
		return err
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return fmt.Errorf("failed to parse URL: %q has no scheme or host", rawURL)
	}

	var isConnected atomic.Bool
	done := make(chan opResult, 1)
	finish := func(r opResult) {
		select {
		case done <- r:
		default:
		}
	}

	opCtx, cancel := context.WithTimeout(ctx, time.Duration(e.Float("timeout")*float64(time.Second)))
	defer cancel()

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		opts.SetPath(parsedURL.Path)
	}
	if e.Bool("insecure_skip_verify") {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(e.Text("namespace"), opts)
	defer func() {
		logger.Debug("Disconnecting socket client")
		io.Disconnect()
	}()

	if onEvent != "" {
		io.On(types.EventName(onEvent), func(data ...any) {
			var reply any
			if len(data) > 0 {
				reply = data[0]
			}
			finish(opResult{value: reply})
		})
	}
	io.On(types.EventName("connect"), func(...any) {
		isConnected.Store(true)
		jsonData, _ := json.Marshal(payload)
		logger.Info("Connected, emitting event", "sid", io.Id(), "data", string(jsonData))
		io.Emit(event, payload)
		if onEvent == "" {
			finish(opResult{})
		}
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connection failed")
		if len(errs) > 0 {
			if cause, ok := errs[0].(error); ok {
				err = cause
			}
		}
		finish(opResult{err: err})
	})

	io.Connect()

	select {
	case <-opCtx.Done():
		if isConnected.Load() {
			return fmt.Errorf("timed out after connecting while waiting for event %q", onEvent)
		}
		return errors.New("timed out while waiting for initial connection")
	case res := <-done:
		if res.err != nil {
			return res.err
		}
		if onEvent != "" {
			sc.Set(e.Text("key"), res.value)
		}
		return nil
	}
}
