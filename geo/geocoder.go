package geo

import (
	"context"
	"dealspot-web/cache"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mmcloughlin/geohash"
)

const (
	// geohashPrecision of 8 characters is a cell of roughly 38m x 19m.
	geohashPrecision = 8
	cacheTTL         = 7 * 24 * time.Hour
	searchLimit      = 5
	maxQueryLength   = 200
)

// ErrNoResults is returned when the service found nothing.
var ErrNoResults = errors.New("no matching location")

// Place is a geocoding result.
type Place struct {
	Coordinate
	DisplayName string `json:"displayName"`
}

// Geocoder resolves free text to coordinates and back.
type Geocoder struct {
	client    *http.Client
	cache     *cache.Cache
	logger    *slog.Logger
	baseURL   string
	userAgent string
}

// NewGeocoder creates a geocoder for a Nominatim-compatible baseURL.
// cache may be nil.
func NewGeocoder(client *http.Client, baseURL, userAgent string, c *cache.Cache, logger *slog.Logger) *Geocoder {
	return &Geocoder{
		client:    client,
		cache:     c,
		logger:    logger,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		userAgent: userAgent,
	}
}

// nominatimPlace mirrors the service's JSON; coordinates arrive as strings.
type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

func (p nominatimPlace) toPlace() (Place, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return Place{}, fmt.Errorf("parse latitude %q: %w", p.Lat, err)
	}
	lng, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return Place{}, fmt.Errorf("parse longitude %q: %w", p.Lon, err)
	}
	return Place{Coordinate: Coordinate{Lat: lat, Lng: lng}, DisplayName: p.DisplayName}, nil
}

// Search forward-geocodes free text.
func (g *Geocoder) Search(ctx context.Context, text string) ([]Place, error) {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil, ErrNoResults
	}
	if len(text) > maxQueryLength {
		cut := maxQueryLength
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = strings.TrimSpace(text[:cut])
	}

	key := "geo:fwd:" + strings.ToLower(text)
	var places []Place
	if g.cached(ctx, key, &places) {
		return places, nil
	}

	q := url.Values{}
	q.Set("q", text)
	q.Set("format", "json")
	q.Set("limit", strconv.Itoa(searchLimit))

	var raw []nominatimPlace
	if err := g.get(ctx, "/search", q, &raw); err != nil {
		return nil, err
	}
	for _, r := range raw {
		p, err := r.toPlace()
		if err != nil {
			g.logger.Warn("Skipping unparsable geocoding result", "query", text, "error", err)
			continue
		}
		places = append(places, p)
	}
	if len(places) == 0 {
		return nil, ErrNoResults
	}

	g.store(ctx, key, places)
	return places, nil
}

// Reverse turns coordinates into a human-readable place.
func (g *Geocoder) Reverse(ctx context.Context, c Coordinate) (*Place, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid coordinate %v", c)
	}

	key := "geo:rev:" + geohash.EncodeWithPrecision(c.Lat, c.Lng, geohashPrecision)
	var place Place
	if g.cached(ctx, key, &place) {
		return &place, nil
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(c.Lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(c.Lng, 'f', 6, 64))
	q.Set("format", "json")

	var raw nominatimPlace
	if err := g.get(ctx, "/reverse", q, &raw); err != nil {
		return nil, err
	}
	if raw.Error != "" || raw.DisplayName == "" {
		return nil, ErrNoResults
	}
	place, err := raw.toPlace()
	if err != nil {
		return nil, fmt.Errorf("decode reverse result: %w", err)
	}

	g.store(ctx, key, place)
	return &place, nil
}

func (g *Geocoder) get(ctx context.Context, path string, q url.Values, out any) error {
	reqURL := g.baseURL + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	// Nominatim's usage policy requires an identifying User-Agent.
	req.Header.Set("User-Agent", g.userAgent)

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("geocoder request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			g.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	g.logger.Debug("Geocoder request completed",
		"path", path,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geocoder returned HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode geocoder response: %w", err)
	}
	return nil
}

func (g *Geocoder) cached(ctx context.Context, key string, out any) bool {
	if g.cache == nil {
		return false
	}
	found, err := g.cache.Get(ctx, key, out)
	if err != nil {
		g.logger.Warn("Geocoder cache read failed", "key", key, "error", err)
		return false
	}
	return found
}

func (g *Geocoder) store(ctx context.Context, key string, v any) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Set(ctx, key, v, cacheTTL); err != nil {
		g.logger.Warn("Geocoder cache write failed", "key", key, "error", err)
	}
}
