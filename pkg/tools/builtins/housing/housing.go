// Package housing implements house_price_prediction_model: HDB resale
// price estimates from a model-serving endpoint, plus a lookup of the
// latest known resale record for a postal code.
package housing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/rhuss/askdata/pkg/debug"
	"github.com/rhuss/askdata/pkg/tools"
	"github.com/rhuss/askdata/pkg/tools/builtins/database"
)

const doc = `PredictHousePrice(l Listing) (float64, error)
Predict the resale price of an HDB flat from its features. All fields are optional, more fields give better predictions.
Returns the predicted price in SGD.

type Listing struct {
	Month             string  // transaction month "YYYY-MM"
	StoreyRange       string  // e.g. "04 to 06"
	Town              string  // e.g. "YISHUN"
	FlatType          string  // e.g. "4 ROOM"
	FlatModel         string  // e.g. "Simplified"
	StreetName        string  // e.g. "ANG MO KIO AVE 10"
	FloorAreaSqm      float64
	LeaseCommenceDate string  // e.g. "1985"
	RemainingLease    string  // e.g. "59 years 11 months"
}

GetFlatInfo(postcode string) (Listing, error)
Returns the features of the most recent resale transaction of the block at postcode, ready to pass to PredictHousePrice.

Example:
	price, err := tools.PredictHousePrice(tools.Listing{
		Month:        "2025-01",
		StoreyRange:  "04 to 06",
		Town:         "YISHUN",
		FlatType:     "4 ROOM",
		FloorAreaSqm: 84,
	})
	if err != nil {
		yield(err)
		return
	}
	yield(fmt.Sprintf("Estimated price: SGD %.0f", price))`

// ErrNoPrediction is returned when the model server answers without a
// prediction.
var ErrNoPrediction = errors.New("model server returned no prediction")

// Config configures the tool.
type Config struct {
	// Endpoint is the model server predict URL, e.g.
	// "http://hdb-price:8080/v1/models/hdb:predict".
	Endpoint string

	// Timeout bounds a prediction request (default: 10s).
	Timeout time.Duration

	// TownStats maps upper case town names to resale aggregates.
	TownStats map[string]TownStats

	// DB holds the hdb and resale_flat_prices tables for GetFlatInfo.
	// Optional.
	DB database.Backend

	// HTTPClient overrides the default client.
	HTTPClient *http.Client

	// Now overrides the clock used for remaining lease computation.
	Now func() time.Time
}

// Tool is the house_price_prediction_model tool.
type Tool struct {
	cfg    Config
	client *http.Client
}

var _ tools.Tool = (*Tool)(nil)

// New creates the tool.
func New(cfg Config) (*Tool, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("house price endpoint is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Tool{cfg: cfg, client: client}, nil
}

func (t *Tool) Name() string { return "house_price_prediction_model" }
func (t *Tool) Doc() string  { return doc }

func (t *Tool) Symbols(ctx context.Context) map[string]reflect.Value {
	return map[string]reflect.Value{
		"Listing": reflect.ValueOf((*Listing)(nil)),
		"PredictHousePrice": reflect.ValueOf(func(l Listing) (float64, error) {
			return t.Predict(ctx, l)
		}),
		"GetFlatInfo": reflect.ValueOf(func(postcode string) (Listing, error) {
			return t.FlatInfo(ctx, postcode)
		}),
	}
}

type predictRequest struct {
	Instances []Features `json:"instances"`
}

type predictResponse struct {
	Predictions []float64 `json:"predictions"`
	Error       string    `json:"error,omitempty"`
}

// Predict returns the price estimate for l.
func (t *Tool) Predict(ctx context.Context, l Listing) (float64, error) {
	features := Preprocess(l, t.cfg.TownStats)
	body, err := json.Marshal(predictRequest{Instances: []Features{features}})
	if err != nil {
		return 0, fmt.Errorf("encoding features: %w", err)
	}
	debug.Log("tools", "house price request", "body", debug.Truncate(string(body), 500))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("calling price model: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("reading price model response: %w", err)
	}
	var pr predictResponse
	if err := json.Unmarshal(data, &pr); err != nil && resp.StatusCode == http.StatusOK {
		return 0, fmt.Errorf("decoding price model response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := pr.Error
		if msg == "" {
			msg = debug.Truncate(strings.TrimSpace(string(data)), 200)
		}
		return 0, fmt.Errorf("price model returned status %d: %s", resp.StatusCode, msg)
	}
	if len(pr.Predictions) == 0 {
		return 0, ErrNoPrediction
	}
	return pr.Predictions[0], nil
}
