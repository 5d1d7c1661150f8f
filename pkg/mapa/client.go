// Package mapa provides a client for the mapa-puntos-interes REST API, the
// system-of-record for points of interest. The API speaks Spanish field
// names on the wire; callers translate to their own domain types.
package mapa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// ErrUnavailable marks transport-level failures: the server could not be
// reached at all. API-level rejections (4xx, success=false envelopes) wrap
// plain errors instead.
var ErrUnavailable = eris.New("mapa: server unreachable")

// Client defines the mapa-puntos-interes operations.
//
// Calls are single attempts with a bounded timeout; the engine treats the
// remote as best-effort and callers retry at a higher level if they care.
type Client interface {
	// Health checks the /health endpoint. It never returns an error; an
	// unreachable server yields Reachable=false.
	Health(ctx context.Context) HealthStatus
	// ListPuntos returns every punto known to the server.
	ListPuntos(ctx context.Context) ([]Punto, error)
	// CreatePunto registers a new punto and returns the stored copy.
	CreatePunto(ctx context.Context, p Punto) (Punto, error)
	// UpdatePunto overwrites mutable fields of the punto with the given
	// numeric server ID.
	UpdatePunto(ctx context.Context, id int, p Punto) (Punto, error)
	// DeletePunto removes the punto with the given numeric server ID.
	DeletePunto(ctx context.Context, id int) error
	// FindByElemento scans for the punto whose elemento_identificado
	// matches. Returns (nil, nil) when absent.
	FindByElemento(ctx context.Context, elementoID string) (*Punto, error)
	// UpsertPunto creates the punto, or updates the existing punto with
	// the same elemento_identificado. Reports whether it created.
	UpsertPunto(ctx context.Context, p Punto) (Punto, bool, error)
}

// Option configures the mapa client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout bounds each request. Default 5s.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.http.Timeout = d
	}
}

// WithRateLimit throttles outgoing requests to rps with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a mapa client for the given base URL
// (e.g. http://localhost:3000).
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the response wrapper every mapa endpoint uses.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Uptime  float64         `json:"uptime,omitempty"`
}

// do issues one request and returns the decoded envelope. Transport
// failures are wrapped in ErrUnavailable; no retries happen at this layer.
func (c *httpClient) do(ctx context.Context, method, path string, payload any) (*envelope, int, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, 0, eris.Wrap(err, "mapa: rate limiter")
		}
	}

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, eris.Wrap(err, "mapa: marshal request")
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, 0, eris.Wrap(err, "mapa: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "CopForge/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, eris.Wrapf(ErrUnavailable, "%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, eris.Wrap(err, "mapa: read response body")
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, resp.StatusCode, eris.Wrapf(err, "mapa: unmarshal response (status %d)", resp.StatusCode)
		}
	}
	return &env, resp.StatusCode, nil
}

func (c *httpClient) Health(ctx context.Context) HealthStatus {
	start := time.Now()
	env, status, err := c.do(ctx, http.MethodGet, "/health", nil)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return HealthStatus{Reachable: false, LatencyMS: latency, Message: err.Error()}
	}
	if status != http.StatusOK {
		return HealthStatus{Reachable: false, LatencyMS: latency, Message: fmt.Sprintf("health endpoint returned status %d", status)}
	}
	return HealthStatus{
		Reachable: true,
		LatencyMS: latency,
		Message:   fmt.Sprintf("server OK - uptime: %.0fs", env.Uptime),
	}
}

func (c *httpClient) ListPuntos(ctx context.Context) ([]Punto, error) {
	env, status, err := c.do(ctx, http.MethodGet, "/api/puntos", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("mapa: list puntos: unexpected status %d", status)
	}
	var puntos []Punto
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &puntos); err != nil {
			return nil, eris.Wrap(err, "mapa: unmarshal puntos")
		}
	}
	return puntos, nil
}

func (c *httpClient) CreatePunto(ctx context.Context, p Punto) (Punto, error) {
	env, status, err := c.do(ctx, http.MethodPost, "/api/puntos", p)
	if err != nil {
		return Punto{}, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return Punto{}, eris.Errorf("mapa: create punto: unexpected status %d: %s", status, env.Message)
	}
	if !env.Success {
		return Punto{}, eris.Errorf("mapa: create punto: server returned success=false: %s", env.Message)
	}
	var created Punto
	if err := json.Unmarshal(env.Data, &created); err != nil {
		return Punto{}, eris.Wrap(err, "mapa: unmarshal created punto")
	}
	return created, nil
}

func (c *httpClient) UpdatePunto(ctx context.Context, id int, p Punto) (Punto, error) {
	env, status, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/puntos/%d", id), p)
	if err != nil {
		return Punto{}, err
	}
	if status != http.StatusOK {
		return Punto{}, eris.Errorf("mapa: update punto %d: unexpected status %d: %s", id, status, env.Message)
	}
	if !env.Success {
		return Punto{}, eris.Errorf("mapa: update punto %d: server returned success=false: %s", id, env.Message)
	}
	var updated Punto
	if err := json.Unmarshal(env.Data, &updated); err != nil {
		return Punto{}, eris.Wrap(err, "mapa: unmarshal updated punto")
	}
	return updated, nil
}

func (c *httpClient) DeletePunto(ctx context.Context, id int) error {
	env, status, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/puntos/%d", id), nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK || !env.Success {
		return eris.Errorf("mapa: delete punto %d: status %d success=%t: %s", id, status, env.Success, env.Message)
	}
	return nil
}

// FindByElemento lists all puntos and scans for the matching element ID.
// The API has no lookup-by-element endpoint, so this is O(n) on the remote
// set size.
func (c *httpClient) FindByElemento(ctx context.Context, elementoID string) (*Punto, error) {
	puntos, err := c.ListPuntos(ctx)
	if err != nil {
		return nil, err
	}
	for i := range puntos {
		if puntos[i].ElementoIdentificado == elementoID {
			return &puntos[i], nil
		}
	}
	return nil, nil
}

func (c *httpClient) UpsertPunto(ctx context.Context, p Punto) (Punto, bool, error) {
	if p.ElementoIdentificado == "" {
		return Punto{}, false, eris.New("mapa: punto must include elemento_identificado")
	}
	existing, err := c.FindByElemento(ctx, p.ElementoIdentificado)
	if err != nil {
		return Punto{}, false, err
	}
	if existing == nil {
		created, err := c.CreatePunto(ctx, p)
		return created, true, err
	}

	// The server rejects updates that touch identity fields.
	update := p
	update.ID = 0
	update.ElementoIdentificado = ""
	update.TipoElemento = ""
	update.Nombre = ""
	updated, err := c.UpdatePunto(ctx, existing.ID, update)
	return updated, false, err
}
