package schools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhuss/askdata/pkg/frame"
	"github.com/rhuss/askdata/pkg/tools/builtins/database"
)

const fixture = `
CREATE TABLE singapore_postcode (postcode TEXT, latitude REAL, longitude REAL);
INSERT INTO singapore_postcode VALUES
	('139951', 1.3000, 103.8000),
	('288913', 1.3090, 103.8000),
	('259240', 1.3000, 103.8150),
	('768544', 1.4300, 103.8400);
CREATE TABLE school (school_name TEXT, address TEXT, postcode TEXT, telephone_no TEXT, email_address TEXT);
INSERT INTO school VALUES
	('FARRER SECONDARY', '111 FARRER ROAD', '259240', '64745666', 'f@moe.edu.sg'),
	('HILLCREST COLLEGE', '37 HILLCREST ROAD', '288913', '64667755', 'h@moe.edu.sg'),
	('YISHUN PRIMARY', '500 YISHUN RING ROAD', '768544', '67521234', 'y@moe.edu.sg');
CREATE TABLE preschool_location (centre_name TEXT, centre_code TEXT, latitude REAL, longitude REAL);
INSERT INTO preschool_location VALUES
	('LITTLE STEPS', 'PT1001', 1.3010, 103.8000),
	('FAR AWAY KIDS', 'PT2002', 1.3000, 103.8170),
	('CORNER CARE', 'PT3003', 1.3080, 103.8080);
`

func newTool(t *testing.T, opts Options) *Tool {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Exec(context.Background(), fixture))
	return New(db, opts)
}

func TestHaversine(t *testing.T) {
	// One degree of latitude is about 111.19 km.
	assert.InDelta(t, 111.19, Haversine(0, 0, 1, 0), 0.01)
	assert.Zero(t, Haversine(1.3, 103.8, 1.3, 103.8))
}

func TestSchoolsOrderedByDistance(t *testing.T) {
	tool := newTool(t, Options{})
	f, err := tool.Schools(context.Background(), "139951", 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"school_name", "address", "postcode", "telephone", "email", "latitude", "longitude", "distance_km"}, f.Columns)
	names, err := f.Strings("school_name")
	require.NoError(t, err)
	assert.Equal(t, []string{"HILLCREST COLLEGE", "FARRER SECONDARY"}, names)

	dist, err := f.Floats("distance_km")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, dist[0], 0.01)
	assert.InDelta(t, 1.67, dist[1], 0.01)
}

func TestSchoolsRadiusIsExact(t *testing.T) {
	tool := newTool(t, Options{})
	f, err := tool.Schools(context.Background(), "139951", 1.5)
	require.NoError(t, err)
	assert.Equal(t, 1, f.Len())
}

func TestSchoolsLimit(t *testing.T) {
	tool := newTool(t, Options{SchoolLimit: 1})
	f, err := tool.Schools(context.Background(), "139951", 5)
	require.NoError(t, err)
	require.Equal(t, 1, f.Len())
	assert.Equal(t, "HILLCREST COLLEGE", f.Rows[0][0])
}

func TestPreschools(t *testing.T) {
	tool := newTool(t, Options{})
	// CORNER CARE lies inside the 1 km bounding box but 1.26 km away.
	f, err := tool.Preschools(context.Background(), "139951", 1)
	require.NoError(t, err)
	require.Equal(t, 1, f.Len())
	assert.Equal(t, "LITTLE STEPS", f.Rows[0][0])
}

func TestUnknownPostcode(t *testing.T) {
	tool := newTool(t, Options{})
	_, err := tool.Schools(context.Background(), "000000", 2)
	assert.ErrorIs(t, err, ErrUnknownPostcode)
}

func TestSymbols(t *testing.T) {
	tool := newTool(t, Options{})
	fn, ok := tool.Symbols(context.Background())["FindPreschoolsNearPostcode"].Interface().(func(string, float64) (*frame.Frame, error))
	require.True(t, ok)
	f, err := fn("139951", 5)
	require.NoError(t, err)
	assert.Equal(t, 3, f.Len())
}
