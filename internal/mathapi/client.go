// Package mathapi is the thin HTTP client for the remote computation service.
// Every call is a single GET under the /api prefix; there is no retry or caching.
package mathapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/mathviz/internal/geom"
	"github.com/banshee-data/mathviz/internal/httputil"
	"github.com/banshee-data/mathviz/internal/monitoring"
)

const (
	// DefaultTimeout bounds every request to the computation service.
	DefaultTimeout = 10 * time.Second
	// Prefix is prepended to every endpoint path.
	Prefix = "/api"
	// MaxResolution is the largest grid resolution accepted in a response.
	MaxResolution = 200
)

// Endpoints served by the computation backend, relative to Prefix.
const (
	EndpointTest            = "/test"
	EndpointGradientDescent = "/gradient-descent"
	EndpointConvex          = "/convex-function"
	EndpointSaddle          = "/saddle-function"
	EndpointFFT             = "/fft"
	EndpointFractal         = "/fractal"
	EndpointMonteCarlo      = "/monte-carlo"
)

// Client issues GET requests against the computation service.
type Client struct {
	baseURL string
	http    httputil.HTTPClient
}

// NewClient returns a client rooted at baseURL. A nil httpClient gets a
// standard client with DefaultTimeout.
func NewClient(baseURL string, httpClient httputil.HTTPClient) *Client {
	if httpClient == nil {
		httpClient = httputil.NewTimeoutClient(DefaultTimeout)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// BaseURL returns the configured service root without the /api prefix.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL builds the absolute request URL for endpoint and params.
func (c *Client) URL(endpoint string, params url.Values) string {
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	u := c.baseURL + Prefix + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// get performs one request and decodes the JSON body into v.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, v interface{}) error {
	u := c.URL(endpoint, params)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		monitoring.Errorf("mathapi", "GET %s: %v", u, err)
		return fmt.Errorf("GET %s: %w", endpoint, err)
	}
	if err := httputil.ReadJSON(resp, v); err != nil {
		monitoring.Errorf("mathapi", "GET %s: %v", u, err)
		return fmt.Errorf("GET %s: %w", endpoint, err)
	}
	return nil
}

// TestConnection calls the backend's connectivity probe and returns its raw body.
func (c *Client) TestConnection(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.get(ctx, EndpointTest, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// surfaceBody is the object form of a surface response. The distinguished
// point may be sent under any of the three keys.
type surfaceBody struct {
	Points       geom.PointGrid `json:"points"`
	Resolution   int            `json:"resolution"`
	SpecialPoint *geom.Point3D  `json:"specialPoint"`
	Minimum      *geom.Point3D  `json:"minimum"`
	SaddlePoint  *geom.Point3D  `json:"saddlePoint"`
}

// FetchSurface requests a sampled surface at the given resolution. The
// response may be a bare point array or a surface object. When the response
// omits the resolution, the requested one is assumed.
func (c *Client) FetchSurface(ctx context.Context, endpoint string, resolution int, params url.Values) (*geom.SurfaceData, error) {
	q := cloneValues(params)
	q.Set("resolution", strconv.Itoa(resolution))

	var raw json.RawMessage
	if err := c.get(ctx, endpoint, q, &raw); err != nil {
		return nil, err
	}
	return DecodeSurface(raw, resolution)
}

// DecodeSurface parses either response form of a surface endpoint.
func DecodeSurface(raw []byte, resolution int) (*geom.SurfaceData, error) {
	out := &geom.SurfaceData{Resolution: resolution}
	if isArray(raw) {
		if err := json.Unmarshal(raw, &out.Points); err != nil {
			return nil, fmt.Errorf("failed to decode surface points: %w", err)
		}
		return out, nil
	}
	var body surfaceBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("failed to decode surface: %w", err)
	}
	out.Points = body.Points
	out.Resolution = responseResolution(body.Resolution, resolution)
	switch {
	case body.SpecialPoint != nil:
		out.Special = body.SpecialPoint
	case body.Minimum != nil:
		out.Special = body.Minimum
	case body.SaddlePoint != nil:
		out.Special = body.SaddlePoint
	}
	return out, nil
}

// responseResolution returns got when it is in 1..MaxResolution and
// requested otherwise. Out of range values are logged.
func responseResolution(got, requested int) int {
	switch {
	case got <= 0:
		return requested
	case got > MaxResolution:
		monitoring.Warnf("mathapi", "response resolution %d exceeds %d, using requested %d", got, MaxResolution, requested)
		return requested
	}
	return got
}

type descentBody struct {
	Surface    geom.PointGrid    `json:"surface"`
	Resolution int               `json:"resolution"`
	Path       geom.PathSequence `json:"path"`
}

// FetchDescent requests a gradient descent run. A bare array is treated as
// the path alone.
func (c *Client) FetchDescent(ctx context.Context, endpoint string, resolution int, params url.Values) (*geom.DescentData, error) {
	q := cloneValues(params)
	q.Set("resolution", strconv.Itoa(resolution))

	var raw json.RawMessage
	if err := c.get(ctx, endpoint, q, &raw); err != nil {
		return nil, err
	}
	return DecodeDescent(raw, resolution)
}

// DecodeDescent parses either response form of the descent endpoint.
func DecodeDescent(raw []byte, resolution int) (*geom.DescentData, error) {
	out := &geom.DescentData{Resolution: resolution}
	if isArray(raw) {
		if err := json.Unmarshal(raw, &out.Path); err != nil {
			return nil, fmt.Errorf("failed to decode descent path: %w", err)
		}
		return out, nil
	}
	var body descentBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("failed to decode descent: %w", err)
	}
	out.Surface = body.Surface
	out.Path = body.Path
	out.Resolution = responseResolution(body.Resolution, resolution)
	return out, nil
}

// FetchPoints requests a bare point array such as an FFT spectrum or a set
// of Monte Carlo samples.
func (c *Client) FetchPoints(ctx context.Context, endpoint string, params url.Values) ([]geom.Point3D, error) {
	var pts []geom.Point3D
	if err := c.get(ctx, endpoint, params, &pts); err != nil {
		return nil, err
	}
	return pts, nil
}

func isArray(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+1)
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
