// Package fetch retrieves lap data from the VinkSite timing service.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/mod/semver"

	"github.com/mpapenbr/schaatslog/log"
	"github.com/mpapenbr/schaatslog/pkg/model"
)

type Endpoint string

const (
	EndpointGetData2      Endpoint = "getData2"
	EndpointLapsData      Endpoint = "LapsData"
	EndpointLapsGrafieken Endpoint = "LapsGrafieken"
)

const (
	DefaultBaseURL         = "https://vinksite.com"
	DefaultProtocolVersion = "v9.9.275"
	DefaultUserAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	getData2Referer        = "https://vinksite.com/Laps.htm"
	legacyReferer          = "https://www.vinksite.com/"
	legacyOrigin           = "https://www.vinksite.com"
)

func ParseEndpoint(s string) (Endpoint, error) {
	switch Endpoint(s) {
	case EndpointGetData2, "":
		return EndpointGetData2, nil
	case EndpointLapsData, EndpointLapsGrafieken:
		return Endpoint(s), nil
	default:
		return "", fmt.Errorf("unknown endpoint %q", s)
	}
}

// HTTPError is returned for responses with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

// Fetcher returns the raw response body for a transponder.
type Fetcher interface {
	FetchRaw(ctx context.Context, transponder string, filter model.FilterMode) (string, error)
}

type (
	Client struct {
		baseURL         string
		urlOverride     string
		endpoint        Endpoint
		protocolVersion string
		userAgent       string
		httpClient      *http.Client
		l               *log.Logger
		tracer          trace.Tracer
	}
	ClientOption func(*Client)
)

var _ Fetcher = (*Client)(nil)

func WithBaseURL(arg string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(arg, "/")
	}
}

// WithURL replaces the computed request url completely (used for tests).
func WithURL(arg string) ClientOption {
	return func(c *Client) {
		c.urlOverride = arg
	}
}

func WithEndpoint(arg Endpoint) ClientOption {
	return func(c *Client) {
		c.endpoint = arg
	}
}

func WithProtocolVersion(arg string) ClientOption {
	return func(c *Client) {
		c.protocolVersion = arg
	}
}

func WithUserAgent(arg string) ClientOption {
	return func(c *Client) {
		c.userAgent = arg
	}
}

func WithHTTPClient(arg *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = arg
	}
}

func WithLogger(arg *log.Logger) ClientOption {
	return func(c *Client) {
		c.l = arg
	}
}

func NewClient(opts ...ClientOption) (*Client, error) {
	c := &Client{
		baseURL:         DefaultBaseURL,
		endpoint:        EndpointGetData2,
		protocolVersion: DefaultProtocolVersion,
		userAgent:       DefaultUserAgent,
		httpClient:      &http.Client{Timeout: 20 * time.Second},
		l:               log.Default().Named("fetch"),
		tracer:          otel.Tracer("schaatslog/fetch"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if !semver.IsValid(c.protocolVersion) {
		return nil, fmt.Errorf("invalid protocol version %q", c.protocolVersion)
	}
	if _, err := ParseEndpoint(string(c.endpoint)); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

// RequestURL returns the url used for the transponder.
func (c *Client) RequestURL(transponder string) string {
	if c.urlOverride != "" {
		return c.urlOverride
	}
	switch c.endpoint {
	case EndpointLapsData, EndpointLapsGrafieken:
		return fmt.Sprintf("%s/%s.ashx", c.baseURL, c.endpoint)
	default:
		// keep the parameter order of the web site
		q := "uid=" + url.QueryEscape(transponder) +
			"&trmin=0&nol=0&olduid=" +
			"&version=" + url.QueryEscape(c.protocolVersion)
		return fmt.Sprintf("%s/LapsSubs/getData2.php?%s", c.baseURL, q)
	}
}

// FormBody returns the form used by the legacy endpoints.
func FormBody(transponder string, filter model.FilterMode) string {
	return "Transp=" + url.QueryEscape(transponder) +
		"&Filter=" + url.QueryEscape(string(filter)) +
		"&MinLaps=0&MaxLaps=1000"
}

func (c *Client) legacy() bool {
	return c.endpoint == EndpointLapsData || c.endpoint == EndpointLapsGrafieken
}

//nolint:whitespace // can't make both editor and linter happy
func (c *Client) newRequest(
	ctx context.Context, transponder string, filter model.FilterMode,
) (*http.Request, error) {
	if !c.legacy() {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			c.RequestURL(transponder), http.NoBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "text/plain, */*")
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Referer", getData2Referer)
		return req, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.RequestURL(transponder), strings.NewReader(FormBody(transponder, filter)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/plain, */*")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Referer", legacyReferer)
	req.Header.Set("Origin", legacyOrigin)
	return req, nil
}

// FetchRaw issues the request and returns the body as text.
// A non-2xx status yields an *HTTPError and the body is not read.
//
//nolint:whitespace // can't make both editor and linter happy
func (c *Client) FetchRaw(
	ctx context.Context, transponder string, filter model.FilterMode,
) (string, error) {
	reqID := uuid.NewString()
	ctx, span := c.tracer.Start(ctx, "fetch.FetchRaw",
		trace.WithAttributes(
			attribute.String("request.id", reqID),
			attribute.String("transponder", transponder),
			attribute.String("endpoint", string(c.endpoint)),
		))
	defer span.End()

	start := time.Now()
	body, err := c.do(ctx, transponder, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.l.Warn("fetch failed",
			log.String("requestId", reqID),
			log.String("transponder", transponder),
			log.ErrorField(err))
		return "", err
	}
	c.l.Debug("fetched",
		log.String("requestId", reqID),
		log.String("transponder", transponder),
		log.Int("bytes", len(body)),
		log.Since("duration", start))
	return body, nil
}

//nolint:whitespace // can't make both editor and linter happy
func (c *Client) do(
	ctx context.Context, transponder string, filter model.FilterMode,
) (string, error) {
	req, err := c.newRequest(ctx, transponder, filter)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     statusText(resp),
		}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(data), nil
}

// statusText removes the code from resp.Status ("503 Service Unavailable")
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(
		strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}
