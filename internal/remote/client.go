package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mrtui/internal/geo"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName      = "mrtui/internal/remote"
	maxResponseBody = 8 << 20
	sessionCookie   = "session"
)

// Client talks to the MapRoulette REST API.
type Client struct {
	base      *url.URL
	http      *http.Client
	session   string
	userAgent string
	tracer    trace.Tracer
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithSession sets the session cookie obtained from signing in on the web.
func WithSession(cookie string) Option {
	return func(c *Client) { c.session = strings.TrimSpace(cookie) }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q must be http or https", baseURL)
	}
	c := &Client{
		base:      u,
		http:      &http.Client{Timeout: 30 * time.Second},
		userAgent: "mrtui",
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL is the server root without a trailing slash.
func (c *Client) BaseURL() string { return c.base.String() }

func (c *Client) Me(ctx context.Context) (User, error) {
	var out User
	err := c.do(ctx, http.MethodGet, "/api/me", nil, nil, &out, false)
	return out, err
}

func (c *Client) UpdateMe(ctx context.Context, s Settings) error {
	return c.do(ctx, http.MethodPut, "/api/me", nil, s, nil, false)
}

// PickChallenge asks the server to choose a challenge for the user.
func (c *Client) PickChallenge(ctx context.Context, q ChallengeQuery) (Challenge, error) {
	v := url.Values{}
	if q.Difficulty > 0 {
		v.Set("difficulty", strconv.Itoa(q.Difficulty))
	}
	setNear(v, q.Near)
	var out Challenge
	err := c.do(ctx, http.MethodGet, "/api/challenge", v, nil, &out, true)
	return out, err
}

func (c *Client) Challenge(ctx context.Context, slug string) (Challenge, error) {
	var out Challenge
	err := c.do(ctx, http.MethodGet, challengePath(slug), nil, nil, &out, true)
	if err == nil && out.Slug == "" {
		out.Slug = slug
	}
	return out, err
}

func (c *Client) Challenges(ctx context.Context) ([]Challenge, error) {
	var out []Challenge
	err := c.do(ctx, http.MethodGet, "/api/challenges", nil, nil, &out, true)
	return out, err
}

func (c *Client) Stats(ctx context.Context, slug string) (Stats, error) {
	var out Stats
	err := c.do(ctx, http.MethodGet, challengePath(slug)+"/stats", nil, nil, &out, true)
	return out, err
}

// UserStats fetches the signed-in user's activity across challenges.
func (c *Client) UserStats(ctx context.Context) (UserStats, error) {
	var out UserStats
	err := c.do(ctx, http.MethodGet, "/api/stats/me", nil, nil, &out, false)
	return out, err
}

// ChallengeStats fetches task counts by status for every challenge.
func (c *Client) ChallengeStats(ctx context.Context) (map[string]ChallengeSummary, error) {
	out := map[string]ChallengeSummary{}
	err := c.do(ctx, http.MethodGet, "/api/stats/challenges", nil, nil, &out, false)
	return out, err
}

// Task fetches the next task of a challenge, optionally near a point.
func (c *Client) Task(ctx context.Context, slug string, q TaskQuery) (Task, error) {
	v := url.Values{}
	setNear(v, q.Near)
	if q.Assign {
		v.Set("assign", "1")
	} else {
		v.Set("assign", "0")
	}
	var out Task
	err := c.do(ctx, http.MethodGet, challengePath(slug)+"/task", v, nil, &out, true)
	if err == nil && out.Challenge == "" {
		out.Challenge = slug
	}
	return out, err
}

func (c *Client) TaskByID(ctx context.Context, slug, id string) (Task, error) {
	var out Task
	err := c.do(ctx, http.MethodGet, taskPath(slug, id), nil, nil, &out, true)
	if err == nil {
		if out.ID == "" {
			out.ID = id
		}
		if out.Challenge == "" {
			out.Challenge = slug
		}
	}
	return out, err
}

func (c *Client) Geometries(ctx context.Context, slug, id string) ([]geo.Feature, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, taskPath(slug, id)+"/geometries", nil, nil, &raw, true); err != nil {
		return nil, err
	}
	return geo.ParseFeatures(raw)
}

// UpdateTask records a task disposition.
func (c *Client) UpdateTask(ctx context.Context, slug, id string, u TaskUpdate) error {
	return c.do(ctx, http.MethodPost, taskPath(slug, id), nil, u, nil, true)
}

func challengePath(slug string) string {
	return "/api/challenge/" + url.PathEscape(slug)
}

func taskPath(slug, id string) string {
	return challengePath(slug) + "/task/" + url.PathEscape(id)
}

func setNear(v url.Values, near *geo.Near) {
	if near == nil {
		return
	}
	v.Set("lon", strconv.FormatFloat(near.Lon, 'f', -1, 64))
	v.Set("lat", strconv.FormatFloat(near.Lat, 'f', -1, 64))
}

type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, completeOn404 bool) (err error) {
	ctx, span := c.tracer.Start(ctx, method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + path
	u.RawPath = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, mErr := json.Marshal(body)
		if mErr != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, mErr)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.session != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: c.session})
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env errorEnvelope
		_ = json.Unmarshal(data, &env)
		return newAPIError(method, path, resp.StatusCode, env.Error, env.Message, completeOn404)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
