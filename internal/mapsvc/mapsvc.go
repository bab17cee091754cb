// Package mapsvc builds map-provider links for records. It never fetches
// tiles; it only produces the URL a renderer would load.
package mapsvc

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jward/waypoint/internal/errs"
	"github.com/jward/waypoint/internal/store"
)

// ErrDisabled is returned by the disabled provider.
var ErrDisabled = errors.New("map provider disabled")

// Provider turns a record into a map link.
type Provider interface {
	Link(rec store.Record) (string, error)
}

// Config holds provider credentials and endpoint.
type Config struct {
	APIKey string
	// BaseURL is the static map endpoint.
	BaseURL string
	// RestrictTo names the application the key is restricted to at the
	// provider. It is informational and never sent.
	RestrictTo string
	// Zoom and Size default to 15 and 600x300.
	Zoom int
	Size string
}

// StaticMap links to a static map centered on a record's address.
type StaticMap struct {
	base   *url.URL
	apiKey string
	zoom   int
	size   string
}

// New validates cfg and returns a StaticMap. A missing key is ConfigMissing.
func New(cfg Config) (*StaticMap, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errs.New(errs.ConfigMissing, "map provider", "API key is not configured")
	}
	if cfg.BaseURL == "" {
		return nil, errs.New(errs.ConfigMissing, "map provider", "base URL is not configured")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse map base URL: %w", err)
	}
	if base.Scheme != "https" && base.Scheme != "http" {
		return nil, fmt.Errorf("map base URL %q: scheme must be http or https", cfg.BaseURL)
	}
	m := &StaticMap{base: base, apiKey: cfg.APIKey, zoom: cfg.Zoom, size: cfg.Size}
	if m.zoom <= 0 {
		m.zoom = 15
	}
	if m.size == "" {
		m.size = "600x300"
	}
	return m, nil
}

// Link returns the static map URL for rec. The address is the map center;
// a record without one falls back to its name.
func (m *StaticMap) Link(rec store.Record) (string, error) {
	center := strings.TrimSpace(rec.Address)
	if center == "" {
		center = strings.TrimSpace(rec.Name)
	}
	if center == "" {
		return "", fmt.Errorf("record at position %d has no address or name", rec.Position)
	}

	u := *m.base
	q := u.Query()
	q.Set("center", center)
	q.Set("markers", center)
	q.Set("zoom", fmt.Sprint(m.zoom))
	q.Set("size", m.size)
	q.Set("key", m.apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Disabled is the Provider used when map.disabled is set.
type Disabled struct{}

// Link always fails with ErrDisabled.
func (Disabled) Link(store.Record) (string, error) {
	return "", ErrDisabled
}

var (
	_ Provider = (*StaticMap)(nil)
	_ Provider = Disabled{}
)
