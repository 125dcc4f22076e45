// Package earthengine implements engine.Engine against the Earth
// Engine REST API: expression graphs in, computed values, GeoTIFF
// bytes, and tile sessions out.
package earthengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/rotisserie/eris"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"

	"github.com/medcoast/ges-cli/internal/engine"
)

const (
	defaultBaseURL = "https://earthengine.googleapis.com/v1"
	scope          = "https://www.googleapis.com/auth/earthengine"

	defaultRatePerSec = 5
)

// Client talks to the Earth Engine REST API. It implements
// engine.Engine.
type Client struct {
	project string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient overrides the HTTP client (and with it, auth).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(perSec int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(perSec), perSec) }
}

// NewClient creates an authenticated client from a service-account key
// file. The credential establishes a process-wide token source.
func NewClient(ctx context.Context, project, credentialsFile string, opts ...Option) (*Client, error) {
	if project == "" {
		return nil, eris.New("ee: project is required")
	}

	c := &Client{
		project: project,
		baseURL: defaultBaseURL,
		limiter: rate.NewLimiter(rate.Limit(defaultRatePerSec), defaultRatePerSec),
	}
	for _, o := range opts {
		o(c)
	}

	if c.http == nil {
		data, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, eris.Wrap(err, "ee: read credentials file")
		}
		jwt, err := google.JWTConfigFromJSON(data, scope)
		if err != nil {
			return nil, eris.Wrap(err, "ee: parse service account key")
		}
		// No request timeout here: long whole-country reductions and
		// exports are legitimate, and callers cancel through ctx.
		c.http = jwt.Client(ctx)
	}

	return c, nil
}

// FeatureCollection implements engine.Engine.
func (c *Client) FeatureCollection(id string) engine.Table {
	return &eeTable{n: invoke("Collection.loadTable", map[string]*node{
		"tableId": constNode(id),
	})}
}

// ImageCollection implements engine.Engine.
func (c *Client) ImageCollection(id string) engine.Collection {
	return &eeCollection{n: invoke("ImageCollection.load", map[string]*node{
		"id": constNode(id),
	})}
}

// ComputeStats implements engine.Engine. All requests are packed into a
// single dictionary expression and one value:compute round trip.
func (c *Client) ComputeStats(ctx context.Context, reqs []engine.StatRequest) (map[string]engine.Stats, error) {
	values := make(map[string]*node, len(reqs))
	for _, req := range reqs {
		args := map[string]*node{
			"image":     imageNode(req.Image),
			"reducer":   reducerNode(req.Reducer),
			"scale":     constNode(req.ScaleM),
			"maxPixels": constNode(req.MaxPixels),
		}
		if req.Region != nil {
			args["geometry"] = geomNode(req.Region)
		}
		values[req.Name] = invoke("Image.reduceRegion", args)
	}

	var resp struct {
		Result map[string]map[string]*float64 `json:"result"`
	}
	if err := c.post(ctx, "value:compute", computeBody(dict(values)), &resp); err != nil {
		return nil, eris.Wrap(err, "ee: compute stats")
	}

	out := make(map[string]engine.Stats, len(reqs))
	for name, entries := range resp.Result {
		stats := make(engine.Stats, len(entries))
		for k, v := range entries {
			if v != nil {
				stats[k] = *v
			}
		}
		out[name] = stats
	}
	return out, nil
}

// GeometryGeoJSON implements engine.Engine.
func (c *Client) GeometryGeoJSON(ctx context.Context, g engine.Geometry) ([]byte, error) {
	var resp struct {
		Result json.RawMessage `json:"result"`
	}
	if err := c.post(ctx, "value:compute", computeBody(geomNode(g)), &resp); err != nil {
		return nil, eris.Wrap(err, "ee: compute geometry")
	}
	if len(resp.Result) == 0 {
		return nil, engine.NotFoundError("compute geometry", eris.New("empty geometry result"))
	}
	return resp.Result, nil
}

// ExportGeoTIFF implements engine.Engine.
func (c *Client) ExportGeoTIFF(ctx context.Context, img engine.Image, region engine.Geometry, scaleM float64) ([]byte, error) {
	clipped := img.Clip(region)
	body := map[string]any{
		"expression": serialize(imageNode(clipped)),
		"fileFormat": "GEO_TIFF",
		"grid": map[string]any{
			"crsCode": "EPSG:4326",
			"scale":   scaleM,
		},
	}
	data, err := c.postRaw(ctx, "image:computePixels", body)
	if err != nil {
		return nil, eris.Wrap(err, "ee: compute pixels")
	}
	return data, nil
}

// TileLayer implements engine.Engine: registers a map session for the
// styled image and returns its XYZ tile URL template.
func (c *Client) TileLayer(ctx context.Context, img engine.Image, vis engine.VisParams) (string, error) {
	body := map[string]any{
		"expression": serialize(visualize(img, vis)),
		"fileFormat": "PNG",
	}
	var resp struct {
		Name string `json:"name"`
	}
	if err := c.post(ctx, "maps", body, &resp); err != nil {
		return "", eris.Wrap(err, "ee: create map")
	}
	if resp.Name == "" {
		return "", eris.New("ee: create map: empty map name in response")
	}
	return fmt.Sprintf("%s/%s/tiles/{z}/{x}/{y}", c.baseURL, resp.Name), nil
}

func computeBody(n *node) map[string]any {
	return map[string]any{"expression": serialize(n)}
}

func reducerNode(r engine.Reducer) *node {
	switch r {
	case engine.ReducerMinMax:
		return invoke("Reducer.minMax", nil)
	case engine.ReducerCount:
		return invoke("Reducer.count", nil)
	default:
		panic(fmt.Sprintf("earthengine: unsupported reducer %q", r))
	}
}

func (c *Client) post(ctx context.Context, method string, body, out any) error {
	data, err := c.postRaw(ctx, method, body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}
	return nil
}

func (c *Client) postRaw(ctx context.Context, method string, body any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "rate limit wait")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, eris.Wrap(err, "marshal request")
	}

	url := fmt.Sprintf("%s/projects/%s/%s", c.baseURL, c.project, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(method, resp.StatusCode, data)
	}
	return data, nil
}
