// Package schools implements find_schools_near_postcode: schools and
// preschools within a radius of a Singapore postal code.
package schools

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/rhuss/askdata/pkg/frame"
	"github.com/rhuss/askdata/pkg/tools"
	"github.com/rhuss/askdata/pkg/tools/builtins/database"
)

const doc = `FindSchoolsNearPostcode(postcode string, radiusKm float64) (*frame.Frame, error)
Find schools near a given postal code within a radius in kilometres (use 2 when the question does not say).
Returns a frame of schools ordered by distance, nearest first.

Columns: school_name, address, postcode, telephone, email, latitude, longitude, distance_km.

FindPreschoolsNearPostcode(postcode string, radiusKm float64) (*frame.Frame, error)
Same for preschool centres. Columns: centre_name, centre_code, latitude, longitude, distance_km.

Example:
	df, err := tools.FindSchoolsNearPostcode("139951", 1.5)
	if err != nil {
		yield(err)
		return
	}
	yield(fmt.Sprintf("%d schools within 1.5 km", df.Len()))
	yield(df)`

// ErrUnknownPostcode is returned when the postal code has no known location.
var ErrUnknownPostcode = errors.New("unknown postcode")

// Options configures result limits.
type Options struct {
	// DefaultRadiusKm applies when the caller passes a radius <= 0 (default: 2).
	DefaultRadiusKm float64

	// SchoolLimit caps school results (default: 50).
	SchoolLimit int

	// PreschoolLimit caps preschool results (default: 20).
	PreschoolLimit int
}

// Tool is the find_schools_near_postcode tool.
type Tool struct {
	db   database.Backend
	opts Options
}

var _ tools.Tool = (*Tool)(nil)

// New creates the tool on top of a database backend holding the school,
// preschool_location and singapore_postcode tables.
func New(db database.Backend, opts Options) *Tool {
	if opts.DefaultRadiusKm <= 0 {
		opts.DefaultRadiusKm = 2
	}
	if opts.SchoolLimit <= 0 {
		opts.SchoolLimit = 50
	}
	if opts.PreschoolLimit <= 0 {
		opts.PreschoolLimit = 20
	}
	return &Tool{db: db, opts: opts}
}

func (t *Tool) Name() string { return "find_schools_near_postcode" }
func (t *Tool) Doc() string  { return doc }

func (t *Tool) Imports() []string { return []string{`import "askdata/frame"`} }

func (t *Tool) Symbols(ctx context.Context) map[string]reflect.Value {
	return map[string]reflect.Value{
		"FindSchoolsNearPostcode": reflect.ValueOf(func(postcode string, radiusKm float64) (*frame.Frame, error) {
			return t.Schools(ctx, postcode, radiusKm)
		}),
		"FindPreschoolsNearPostcode": reflect.ValueOf(func(postcode string, radiusKm float64) (*frame.Frame, error) {
			return t.Preschools(ctx, postcode, radiusKm)
		}),
	}
}

// Locate returns the coordinates of a postal code.
func (t *Tool) Locate(ctx context.Context, postcode string) (lat, lng float64, err error) {
	f, err := t.db.Query(ctx, "SELECT latitude, longitude FROM singapore_postcode WHERE postcode = ? LIMIT 1", 1, postcode)
	if err != nil {
		return 0, 0, fmt.Errorf("locating postcode: %w", err)
	}
	if f.Empty() {
		return 0, 0, fmt.Errorf("%w: %s", ErrUnknownPostcode, postcode)
	}
	if lat, err = frame.ToFloat(f.Rows[0][0]); err != nil {
		return 0, 0, fmt.Errorf("postcode %s latitude: %w", postcode, err)
	}
	if lng, err = frame.ToFloat(f.Rows[0][1]); err != nil {
		return 0, 0, fmt.Errorf("postcode %s longitude: %w", postcode, err)
	}
	return lat, lng, nil
}

const schoolQuery = `SELECT s.school_name, s.address, s.postcode, s.telephone_no, s.email_address, sp.latitude, sp.longitude
FROM school s
JOIN singapore_postcode sp ON s.postcode = sp.postcode
WHERE sp.latitude BETWEEN ? AND ? AND sp.longitude BETWEEN ? AND ?`

// Schools returns the schools within radiusKm of postcode, nearest first.
func (t *Tool) Schools(ctx context.Context, postcode string, radiusKm float64) (*frame.Frame, error) {
	return t.near(ctx, postcode, radiusKm, schoolQuery,
		[]string{"school_name", "address", "postcode", "telephone", "email", "latitude", "longitude"},
		t.opts.SchoolLimit)
}

const preschoolQuery = `SELECT centre_name, centre_code, latitude, longitude
FROM preschool_location
WHERE latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?`

// Preschools returns the preschool centres within radiusKm of postcode,
// nearest first.
func (t *Tool) Preschools(ctx context.Context, postcode string, radiusKm float64) (*frame.Frame, error) {
	return t.near(ctx, postcode, radiusKm, preschoolQuery,
		[]string{"centre_name", "centre_code", "latitude", "longitude"},
		t.opts.PreschoolLimit)
}

// near runs a bounding box query whose last two columns are latitude and
// longitude, then keeps rows within the exact radius.
func (t *Tool) near(ctx context.Context, postcode string, radiusKm float64, query string, columns []string, limit int) (*frame.Frame, error) {
	postcode = strings.TrimSpace(postcode)
	if radiusKm <= 0 {
		radiusKm = t.opts.DefaultRadiusKm
	}
	lat, lng, err := t.Locate(ctx, postcode)
	if err != nil {
		return nil, err
	}

	b := around(lat, lng, radiusKm)
	candidates, err := t.db.Query(ctx, query, 0, b.minLat, b.maxLat, b.minLng, b.maxLng)
	if err != nil {
		return nil, fmt.Errorf("searching near %s: %w", postcode, err)
	}

	type hit struct {
		row  []any
		dist float64
	}
	n := len(columns)
	var hits []hit
	for _, r := range candidates.Rows {
		la, err1 := frame.ToFloat(r[n-2])
		ln, err2 := frame.ToFloat(r[n-1])
		if err1 != nil || err2 != nil {
			continue
		}
		d := Haversine(lat, lng, la, ln)
		if d > radiusKm {
			continue
		}
		row := append(append(make([]any, 0, n+1), r...), d)
		row[n-2], row[n-1] = la, ln
		hits = append(hits, hit{row: row, dist: d})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })
	if len(hits) > limit {
		hits = hits[:limit]
	}

	out := frame.New(append(append([]string(nil), columns...), "distance_km"), nil)
	for _, h := range hits {
		out.Append(h.row...)
	}
	return out, nil
}
