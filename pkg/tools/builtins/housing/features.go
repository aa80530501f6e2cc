package housing

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Unknown replaces missing categorical values.
const Unknown = "unknown"

// Listing describes the flat to price. Zero values mean "not known".
type Listing struct {
	Month             string  // transaction month, "YYYY-MM"
	StoreyRange       string  // e.g. "04 to 06"
	Town              string  // e.g. "YISHUN"
	FlatType          string  // e.g. "4 ROOM"
	FlatModel         string  // e.g. "Simplified"
	StreetName        string  // e.g. "ANG MO KIO AVE 10"
	FloorAreaSqm      float64 // floor area in square metres
	LeaseCommenceDate string  // year, e.g. "1985"
	RemainingLease    string  // e.g. "59 years 11 months"
}

// TownStats are resale price aggregates of one town.
type TownStats struct {
	Mean   float64 `yaml:"town_mean" json:"town_mean"`
	Median float64 `yaml:"town_median" json:"town_median"`
	Std    float64 `yaml:"town_std" json:"town_std"`
	Count  float64 `yaml:"town_count" json:"town_count"`
}

// LoadTownStats reads town aggregates keyed by upper case town name from
// a YAML (or JSON) file.
func LoadTownStats(path string) (map[string]TownStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading town stats: %w", err)
	}
	raw := map[string]TownStats{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing town stats %s: %w", path, err)
	}
	stats := make(map[string]TownStats, len(raw))
	for town, s := range raw {
		stats[strings.ToUpper(strings.TrimSpace(town))] = s
	}
	return stats, nil
}

// Features is the model input row. Nil numeric fields are sent as null
// and imputed by the model server.
type Features struct {
	Town               string   `json:"town"`
	FlatType           string   `json:"flat_type"`
	FlatModel          string   `json:"flat_model"`
	StreetName         string   `json:"street_name"`
	TownMean           *float64 `json:"town_mean"`
	TownMedian         *float64 `json:"town_median"`
	TownStd            *float64 `json:"town_std"`
	TownCount          *float64 `json:"town_count"`
	StoreyRangeNumeric *float64 `json:"storey_range_numeric"`
	FloorAreaSqm       *float64 `json:"floor_area_sqm"`
	LeaseCommenceDate  *float64 `json:"lease_commence_date"`
	RemainingLease     *float64 `json:"remaining_lease"`
	Year               *float64 `json:"year"`
	MonthSin           *float64 `json:"month_sin"`
	MonthCos           *float64 `json:"month_cos"`
}

// Preprocess derives model features from a listing.
func Preprocess(l Listing, stats map[string]TownStats) Features {
	f := Features{
		Town:               orUnknown(l.Town),
		FlatType:           orUnknown(l.FlatType),
		FlatModel:          orUnknown(l.FlatModel),
		StreetName:         orUnknown(l.StreetName),
		StoreyRangeNumeric: StoreyMidpoint(l.StoreyRange),
		RemainingLease:     LeaseYears(l.RemainingLease),
	}
	if l.FloorAreaSqm > 0 {
		f.FloorAreaSqm = ptr(l.FloorAreaSqm)
	}
	if y, err := strconv.Atoi(strings.TrimSpace(l.LeaseCommenceDate)); err == nil {
		f.LeaseCommenceDate = ptr(float64(y))
	}
	if m, err := time.Parse("2006-01", strings.TrimSpace(l.Month)); err == nil {
		month := float64(m.Month())
		f.Year = ptr(float64(m.Year()))
		f.MonthSin = ptr(math.Sin(2 * math.Pi * month / 12))
		f.MonthCos = ptr(math.Cos(2 * math.Pi * month / 12))
	}
	if s, ok := stats[strings.ToUpper(f.Town)]; ok {
		f.TownMean, f.TownMedian = ptr(s.Mean), ptr(s.Median)
		f.TownStd, f.TownCount = ptr(s.Std), ptr(s.Count)
	}
	return f
}

// StoreyMidpoint converts "04 to 06" to 5.
func StoreyMidpoint(s string) *float64 {
	lower, upper, ok := strings.Cut(strings.TrimSpace(s), " to ")
	if !ok {
		return nil
	}
	lo, err1 := strconv.Atoi(strings.TrimSpace(lower))
	hi, err2 := strconv.Atoi(strings.TrimSpace(upper))
	if err1 != nil || err2 != nil {
		return nil
	}
	return ptr(float64(lo+hi) / 2)
}

// LeaseYears converts "60 years 08 months" to 60.667.
func LeaseYears(s string) *float64 {
	parts := strings.Fields(s)
	if len(parts) < 3 {
		return nil
	}
	years, err1 := strconv.Atoi(parts[0])
	months, err2 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil {
		return nil
	}
	return ptr(float64(years) + float64(months)/12)
}

// RemainingLease formats the remaining 99-year lease at now.
func RemainingLease(commenced int, now time.Time) string {
	years := 99 - (now.Year() - commenced)
	months := 12 - int(now.Month())
	return fmt.Sprintf("%d years %d months", years, months)
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return Unknown
	}
	return s
}

func ptr(v float64) *float64 { return &v }
