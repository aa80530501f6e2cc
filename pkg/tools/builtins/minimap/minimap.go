// Package minimap implements the get_minimap tool, which renders an
// embeddable OneMap iframe with markers.
package minimap

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/rhuss/askdata/pkg/tools"
)

// DefaultBaseURL is the OneMap minimap page.
const DefaultBaseURL = "https://www.onemap.gov.sg/amm/amm.html"

const doc = `GetMinimap(latLng [][2]float64, postcodes []string) string
Generate an HTML iframe for a minimap with markers at latitude/longitude pairs or postal codes.
Returns an HTML iframe string. Yield it to show the map to the user.

Args:
- latLng: latitude and longitude pairs to mark, may be nil.
- postcodes: six digit postal codes to mark, may be nil.

Example:
	yield(tools.GetMinimap([][2]float64{{1.2996492424497, 103.8447478575}}, nil))
	yield(tools.GetMinimap(nil, []string{"123456"}))`

// Options configures the iframe.
type Options struct {
	BaseURL string
	Style   string
	Zoom    int
	Width   int
	Height  int
	Colour  string
}

// Tool is the get_minimap tool.
type Tool struct {
	opts Options
}

var _ tools.Tool = (*Tool)(nil)

// New creates the tool. Zero options fall back to OneMap defaults.
func New(opts Options) *Tool {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Style == "" {
		opts.Style = "Default"
	}
	if opts.Zoom <= 0 {
		opts.Zoom = 15
	}
	if opts.Width <= 0 {
		opts.Width = 450
	}
	if opts.Height <= 0 {
		opts.Height = 450
	}
	if opts.Colour == "" {
		opts.Colour = "red"
	}
	return &Tool{opts: opts}
}

func (t *Tool) Name() string { return "get_minimap" }
func (t *Tool) Doc() string  { return doc }

func (t *Tool) Symbols(context.Context) map[string]reflect.Value {
	return map[string]reflect.Value{
		"GetMinimap": reflect.ValueOf(t.GetMinimap),
	}
}

// GetMinimap returns the iframe. Coordinates outside the valid range and
// blank postal codes are skipped.
func (t *Tool) GetMinimap(latLng [][2]float64, postcodes []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<iframe src="%s?mapStyle=%s&zoomLevel=%d`, t.opts.BaseURL, url.QueryEscape(t.opts.Style), t.opts.Zoom)
	for _, p := range latLng {
		if !ValidCoordinate(p[0], p[1]) {
			continue
		}
		fmt.Fprintf(&b, "&marker=latLng:%s,%s!colour:%s", coord(p[0]), coord(p[1]), t.opts.Colour)
	}
	for _, pc := range postcodes {
		pc = strings.TrimSpace(pc)
		if pc == "" {
			continue
		}
		fmt.Fprintf(&b, "&marker=postalcode:%s!colour:%s", url.QueryEscape(pc), t.opts.Colour)
	}
	fmt.Fprintf(&b, `" height="%d" width="%d" scrolling="no" frameborder="0" allowfullscreen="allowfullscreen"></iframe>`,
		t.opts.Height, t.opts.Width)
	return b.String()
}

// ValidCoordinate reports whether lat/lng is a point on earth.
func ValidCoordinate(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
