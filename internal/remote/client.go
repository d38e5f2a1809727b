// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package remote talks to the video hosting service.
package remote

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

	"github.com/ManuGH/vidsync/internal/log"
	"github.com/ManuGH/vidsync/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	opCreateUpload    = "create_upload"
	opGetStatus       = "get_status"
	opRestrictDomains = "restrict_domains"
	opMoveToFolder    = "move_to_folder"
)

const (
	defaultBaseURL        = "https://api.vimeo.com"
	defaultTimeout        = 30 * time.Second
	defaultRateLimit      = 5
	defaultRateLimitBurst = 10
	maxErrorBody          = 512
	acceptHeader          = "application/vnd.vimeo.*+json;version=3.4"
	statusFields          = "name,status,duration,upload.status,transcode.status,files,pictures.sizes"
)

// Credentials authenticate against the hosting service.
type Credentials struct {
	ClientID     string
	ClientSecret string
	AccessToken  string
}

// Configured is the single predicate gating every remote operation.
func (c Credentials) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.AccessToken != ""
}

// Options configures the client.
type Options struct {
	BaseURL        string
	Credentials    Credentials
	Timeout        time.Duration
	RateLimit      rate.Limit
	RateLimitBurst int
	UserAgent      string
	HTTPClient     *http.Client
}

// Client issues the remote operations. It holds no per-video state and
// never retries a failed call.
type Client struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

// NewClient creates a client from explicit options.
func NewClient(opts Options) *Client {
	opts = normalizeOptions(opts)
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				MaxIdleConns:          50,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				ResponseHeaderTimeout: opts.Timeout,
				TLSHandshakeTimeout:   10 * time.Second,
			},
		}
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		creds:      opts.Credentials,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(opts.RateLimit, opts.RateLimitBurst),
		userAgent:  opts.UserAgent,
	}
}

func normalizeOptions(opts Options) Options {
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = rate.Limit(defaultRateLimit)
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = defaultRateLimitBurst
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = "vidsync"
	}
	return opts
}

// Configured reports whether credentials are present.
func (c *Client) Configured() bool {
	return c.creds.Configured()
}

func (c *Client) requireCredentials(op string) error {
	if c.creds.Configured() {
		return nil
	}
	credentialsMissingTotal.WithLabelValues(op).Inc()
	return newError(ErrCredentialsMissing, op, 0, "", nil)
}

type createUploadRequest struct {
	Upload struct {
		Approach string `json:"approach"`
		Size     int64  `json:"size"`
		Link     string `json:"link"`
	} `json:"upload"`
	Name string `json:"name"`
}

type createUploadResponse struct {
	URI    string     `json:"uri"`
	Upload *SubStatus `json:"upload"`
}

// CreateUpload asks the service to pull src. The remote id is the last path
// segment of the returned URI.
func (c *Client) CreateUpload(ctx context.Context, src Source) (UploadResult, error) {
	if err := c.requireCredentials(opCreateUpload); err != nil {
		return UploadResult{}, err
	}
	var body createUploadRequest
	body.Upload.Approach = "pull"
	body.Upload.Size = src.Size
	body.Upload.Link = src.Link
	body.Name = src.Name

	var resp createUploadResponse
	if err := c.do(ctx, opCreateUpload, "", http.MethodPost, "/me/videos", nil, body, &resp); err != nil {
		return UploadResult{}, err
	}
	id := RemoteIDFromURI(resp.URI)
	if id == "" {
		return UploadResult{}, newError(ErrBadResponse, opCreateUpload, 0, "", fmt.Errorf("missing video uri %q", resp.URI))
	}
	out := UploadResult{RemoteID: id, URI: resp.URI}
	if resp.Upload != nil {
		out.UploadStatus = resp.Upload.Status
	}
	return out, nil
}

// RemoteIDFromURI extracts "123" from "/videos/123".
func RemoteIDFromURI(uri string) string {
	uri = strings.TrimRight(strings.TrimSpace(uri), "/")
	if uri == "" {
		return ""
	}
	if i := strings.LastIndex(uri, "/"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}

// GetStatus fetches the current processing state of a remote video.
func (c *Client) GetStatus(ctx context.Context, remoteID string) (*VideoStatus, error) {
	if err := c.requireCredentials(opGetStatus); err != nil {
		return nil, err
	}
	if remoteID == "" {
		return nil, newError(ErrNotFound, opGetStatus, 0, "", errors.New("empty remote id"))
	}
	q := url.Values{}
	q.Set("fields", statusFields)
	var st VideoStatus
	if err := c.do(ctx, opGetStatus, remoteID, http.MethodGet, "/videos/"+url.PathEscape(remoteID), q, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// RestrictDomains switches embedding to a domain whitelist and adds every
// domain. All domains are attempted; the first failure is returned.
func (c *Client) RestrictDomains(ctx context.Context, remoteID string, domains []string) error {
	if err := c.requireCredentials(opRestrictDomains); err != nil {
		return err
	}
	patch := map[string]any{"privacy": map[string]string{"embed": "whitelist"}}
	path := "/videos/" + url.PathEscape(remoteID)
	if err := c.do(ctx, opRestrictDomains, remoteID, http.MethodPatch, path, nil, patch, nil); err != nil {
		return err
	}
	var firstErr error
	for _, d := range domains {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		err := c.do(ctx, opRestrictDomains, remoteID, http.MethodPut, path+"/privacy/domains/"+url.PathEscape(d), nil, nil, nil)
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// MoveToFolder places the video in the given project folder.
func (c *Client) MoveToFolder(ctx context.Context, remoteID, folderID string) error {
	if err := c.requireCredentials(opMoveToFolder); err != nil {
		return err
	}
	if strings.TrimSpace(folderID) == "" {
		return newError(ErrRejected, opMoveToFolder, 0, "", errors.New("folder id is not defined"))
	}
	path := "/me/projects/" + url.PathEscape(folderID) + "/videos/" + url.PathEscape(remoteID)
	return c.do(ctx, opMoveToFolder, remoteID, http.MethodPut, path, nil, nil, nil)
}

func (c *Client) do(ctx context.Context, op, remoteID, method, path string, query url.Values, in, out any) error {
	tracer := telemetry.Tracer("vidsync.remote")
	ctx, span := tracer.Start(ctx, "vidsync.remote."+op, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(telemetry.RemoteAttributes(op, remoteID)...)
	defer span.End()

	fail := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			// Wait refuses up front when the deadline is too close; no request is sent.
			if ctx.Err() == nil {
				err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
			}
			return fail(newError(ErrUnavailable, op, 0, "", err))
		}
	}

	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fail(newError(ErrUnavailable, op, 0, "", fmt.Errorf("invalid base URL: %w", err)))
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fail(newError(ErrRejected, op, 0, "", err))
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fail(newError(ErrUnavailable, op, 0, "", err))
	}
	c.applyHeaders(req, in != nil)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	recordRequestMetrics(method, op, status, duration, err)
	span.SetAttributes(telemetry.HTTPAttributes(method, path, u.Path, status)...)

	logger := log.WithComponentFromContext(ctx, "remote")
	logger.Debug().
		Str(log.FieldOperation, op).
		Str(log.FieldRemoteID, remoteID).
		Int("http_status", status).
		Int64(log.FieldDuration, duration.Milliseconds()).
		Msg("remote request")

	if err != nil {
		return fail(newError(ErrUnavailable, op, 0, "", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if status < 200 || status > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fail(newError(classifyStatus(status), op, status, strings.TrimSpace(string(snippet)), nil))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		span.SetStatus(codes.Ok, "")
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fail(newError(ErrBadResponse, op, status, "", err))
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func classifyStatus(status int) error {
	switch {
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden || status >= 500:
		return ErrUnavailable
	default:
		return ErrRejected
	}
}

func (c *Client) applyHeaders(req *http.Request, hasBody bool) {
	req.Header.Set("Authorization", "bearer "+c.creds.AccessToken)
	req.Header.Set("Accept", acceptHeader)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
}
