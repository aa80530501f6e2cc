package housing

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rhuss/askdata/pkg/frame"
)

// ErrFlatNotFound is returned when no HDB block has the postal code.
var ErrFlatNotFound = errors.New("no HDB block at postcode")

// typicalFloorArea is used when a block has no resale history.
const typicalFloorArea = 84

// FlatInfo looks up the block at postcode and fills a Listing from its
// latest resale transaction. The month is the current month and the
// remaining lease is computed from the 99-year lease.
func (t *Tool) FlatInfo(ctx context.Context, postcode string) (Listing, error) {
	if t.cfg.DB == nil {
		return Listing{}, fmt.Errorf("flat lookup is not configured")
	}
	now := t.cfg.Now()

	blocks, err := t.cfg.DB.Query(ctx, "SELECT blk_no, street FROM hdb WHERE postcode = ?", 1, postcode)
	if err != nil {
		return Listing{}, fmt.Errorf("looking up block: %w", err)
	}
	if blocks.Empty() {
		return Listing{}, fmt.Errorf("%w %s", ErrFlatNotFound, postcode)
	}
	blk, street := blocks.Rows[0][0], blocks.Rows[0][1]

	sales, err := t.cfg.DB.Query(ctx, `SELECT planarea, flat_type, flat_model, street, floor_area_sqm, lease_commence_date, storey_range
FROM resale_flat_prices
WHERE blk_no = ? AND street = ?
ORDER BY month DESC
LIMIT 1`, 1, blk, street)
	if err != nil {
		return Listing{}, fmt.Errorf("looking up resale history: %w", err)
	}

	l := Listing{
		Month:        now.Format("2006-01"),
		StreetName:   frame.Format(street),
		FloorAreaSqm: typicalFloorArea,
	}
	if sales.Empty() {
		return l, nil
	}
	r := sales.Rows[0]
	l.Town = frame.Format(r[0])
	l.FlatType = frame.Format(r[1])
	l.FlatModel = frame.Format(r[2])
	l.StreetName = frame.Format(r[3])
	if area, err := frame.ToFloat(r[4]); err == nil {
		l.FloorAreaSqm = area
	}
	l.LeaseCommenceDate = frame.Format(r[5])
	l.StoreyRange = frame.Format(r[6])
	if year, err := strconv.Atoi(l.LeaseCommenceDate); err == nil {
		l.RemainingLease = RemainingLease(year, now)
	}
	return l, nil
}
