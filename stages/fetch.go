package stages

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vk/stagegrid/internal/argument"
	"github.com/vk/stagegrid/internal/ctxlog"
	"github.com/vk/stagegrid/internal/pattern"
	"github.com/vk/stagegrid/internal/scope"
	"github.com/vk/stagegrid/internal/stage"
	"github.com/vk/stagegrid/internal/storage"
	"github.com/vk/stagegrid/internal/workflow"
)

// Fetch performs an HTTP request and stores the response in the scope.
var Fetch = &stage.Definition{
	Name: "Fetch",
	Description: "Perform an HTTP request.\n\n" +
		"The response is stored as a mapping with status_code, headers and body. " +
		"When filename is set the body is also written to storage.",
	Args: []*argument.Argument{
		argument.MustNew(argument.Argument{Name: "url", Abbreviation: "-u", Type: pattern.String, Required: true, Help: "request URL"}),
		argument.MustNew(argument.Argument{
			Name:        "method",
			Type:        pattern.String,
			Default:     http.MethodGet,
			ValidValues: argument.OneOf(http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodDelete),
			Help:        "HTTP method",
		}),
		argument.MustNew(argument.Argument{Name: "body", Type: pattern.String, Default: "", Help: "request body"}),
		argument.MustNew(argument.Argument{
			Name:    "headers",
			Type:    pattern.List{pattern.Tuple{pattern.String, pattern.String}},
			Metavar: "NAME VALUE",
			Help:    "request headers",
		}),
		argument.MustNew(argument.Argument{
			Name:        "timeout",
			Type:        pattern.Float,
			Default:     30.0,
			ValidValues: argument.Range{Min: 0, Max: 3600, Inclusive: [2]bool{false, true}},
			Help:        "request timeout in seconds",
		}),
		argument.MustNew(argument.Argument{Name: "key", Abbreviation: "-k", Type: pattern.String, Default: "response", Help: "scope key for the response"}),
		argument.MustNew(argument.Argument{Name: "filename", Abbreviation: "-f", Type: pattern.String, Default: "", Help: "storage entry receiving the body"}),
	},
	Build: func(b stage.Base) stage.Stage { return &fetch{Base: b} },
}

type fetch struct {
	stage.Base
}

// client returns a client whose idle connections are closed when the
// workflow finishes.
func (f *fetch) client(sc *scope.Scope) *http.Client {
	client := &http.Client{
		Timeout: time.Duration(f.Float("timeout") * float64(time.Second)),
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	if exits, err := scope.As[*workflow.ExitStack](sc, workflow.KeyExitStack); err == nil {
		exits.Push(func() error {
			client.CloseIdleConnections()
			return nil
		})
	}
	return client
}

func (f *fetch) Run(ctx context.Context, sc *scope.Scope, st storage.Storage) error {
	method, url := f.Text("method"), f.Text("url")
	logger := ctxlog.FromContext(ctx).With("method", method, "url", url)
	logger.Info("Making HTTP request")

	var body io.Reader
	if s := f.Text("body"); s != "" {
		body = strings.NewReader(s)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	headers, _ := f.Value("headers")
	for _, h := range asList(headers) {
		pair := asList(h)
		if len(pair) != 2 {
			continue
		}
		name, _ := pair[0].(string)
		value, _ := pair[1].(string)
		req.Header.Add(name, value)
	}

	resp, err := f.client(sc).Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()
	logger.Info("Received HTTP response", "status", resp.Status)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if name := f.Text("filename"); name != "" {
		if err := storage.WriteAll(st, name, data); err != nil {
			return fmt.Errorf("saving response body: %w", err)
		}
	}

	respHeaders := make(map[string]any, len(resp.Header))
	for k := range resp.Header {
		respHeaders[k] = resp.Header.Get(k)
	}
	sc.Set(f.Text("key"), map[string]any{
		"status_code": resp.StatusCode,
		"headers":     respHeaders,
		"body":        string(data),
	})
	return nil
}

func asList(v any) []any {
	items, _ := v.([]any)
	return items
}
