// Package catalog talks to the internal video catalog that owns video
// metadata across contexts.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/vidsync/internal/log"
	"github.com/ManuGH/vidsync/internal/telemetry"
	"github.com/ManuGH/vidsync/internal/video"
)

// ErrUnavailable wraps every failed catalog call.
var ErrUnavailable = errors.New("catalog: request failed")

// Catalog is the collaborator consumed by the core.
type Catalog interface {
	PropagateStatus(ctx context.Context, assetID string, status video.Status) error
	AssociateContext(ctx context.Context, assetID, contextID string) error
	Contexts(ctx context.Context, assetID string) ([]string, error)
}

const (
	opPropagateStatus  = "propagate_status"
	opAssociateContext = "associate_context"
	opContexts         = "contexts"

	maxErrorBody = 256
)

// HTTPClient implements Catalog over the catalog's JSON API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a catalog client. Requests carry the trace context.
func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// PropagateStatus updates the catalog's view of the asset status.
func (c *HTTPClient) PropagateStatus(ctx context.Context, assetID string, status video.Status) error {
	body := map[string]string{"status": string(status)}
	return c.do(ctx, opPropagateStatus, assetID, http.MethodPatch, "/videos/"+url.PathEscape(assetID), body, nil)
}

// AssociateContext links the asset to another context.
func (c *HTTPClient) AssociateContext(ctx context.Context, assetID, contextID string) error {
	body := map[string]string{"context_id": contextID}
	return c.do(ctx, opAssociateContext, assetID, http.MethodPost, "/videos/"+url.PathEscape(assetID)+"/contexts", body, nil)
}

// Contexts lists the contexts the asset is associated with.
func (c *HTTPClient) Contexts(ctx context.Context, assetID string) ([]string, error) {
	var out struct {
		Contexts []string `json:"contexts"`
	}
	if err := c.do(ctx, opContexts, assetID, http.MethodGet, "/videos/"+url.PathEscape(assetID), nil, &out); err != nil {
		return nil, err
	}
	return out.Contexts, nil
}

func (c *HTTPClient) do(ctx context.Context, op, assetID, method, path string, in, out any) (err error) {
	ctx, span := telemetry.Tracer("vidsync.catalog").Start(ctx, "vidsync.catalog."+op, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(attribute.String("catalog.operation", op), attribute.String(telemetry.VideoAssetIDKey, assetID))
	defer span.End()

	status := 0
	start := time.Now()
	defer func() {
		recordRequest(op, status, time.Since(start))
		if err == nil {
			span.SetStatus(codes.Ok, "")
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger := log.WithComponentFromContext(ctx, "catalog")
		logger.Warn().Err(err).
			Str(log.FieldEvent, "catalog.request_failed").
			Str(log.FieldOperation, op).
			Str(log.FieldAssetID, assetID).
			Int("http_status", status).
			Msg("catalog request failed")
	}()

	var body io.Reader
	if in != nil {
		payload, merr := json.Marshal(in)
		if merr != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, merr)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	status = resp.StatusCode

	if status < 200 || status > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %s %s: HTTP %d: %s", ErrUnavailable, method, path, status, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	return nil
}
