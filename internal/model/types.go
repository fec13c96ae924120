package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// Zones
// -----------------------------------------------------------------------------

// Zone maps a bidding-zone code to its ENTSO-E EIC domain identifier.
// Zones are operator-supplied configuration and never mutated at runtime.
type Zone struct {
	Code string `yaml:"code"` // Short market-area code (e.g., "AT", "SE4")
	EIC  string `yaml:"eic"`  // EIC domain identifier (e.g., "10YAT-APG------L")
}

// -----------------------------------------------------------------------------
// Resolution
// -----------------------------------------------------------------------------

// Resolution is the time granularity of consecutive points within a period.
type Resolution int

const (
	// Resolution15Min corresponds to the upstream "PT15M" code.
	Resolution15Min Resolution = 15

	// Resolution60Min corresponds to the upstream "PT60M" code.
	Resolution60Min Resolution = 60
)

// ParseResolution maps an upstream resolution code to a Resolution.
// Unrecognized codes fall back to 60 minutes; the upstream occasionally
// publishes exotic resolutions and the fallback is policy, not an error.
func ParseResolution(code string) Resolution {
	if code == "PT15M" {
		return Resolution15Min
	}
	return Resolution60Min
}

// Minutes returns the resolution width in minutes.
func (r Resolution) Minutes() int { return int(r) }

// Duration returns the resolution width as a time.Duration.
func (r Resolution) Duration() time.Duration { return time.Duration(r) * time.Minute }

// String returns the upstream resolution code.
func (r Resolution) String() string {
	if r == Resolution15Min {
		return "PT15M"
	}
	return "PT60M"
}

// -----------------------------------------------------------------------------
// Series labels
// -----------------------------------------------------------------------------

// SeriesLabel identifies one signal within a composite record. Generation
// labels are fixed by the query (document, process and resource type codes);
// price labels are derived from the contract-type code observed in each
// TimeSeries, so the full label set is open-ended.
type SeriesLabel = string

// GenerationLabel builds the label for a generation signal,
// e.g. ("A75", "A16", "B16") -> "A75_A16_B16".
func GenerationLabel(documentType, processType, psrType string) SeriesLabel {
	if psrType == "" {
		return documentType + "_" + processType
	}
	return documentType + "_" + processType + "_" + psrType
}

// PriceLabel builds the label for a price signal from its contract-type code,
// e.g. "A01" (day-ahead) -> "A44_A01", "A07" (intraday) -> "A44_A07".
func PriceLabel(documentType, contractType string) SeriesLabel {
	return documentType + "_" + contractType
}

// -----------------------------------------------------------------------------
// Decoded points
// -----------------------------------------------------------------------------

// TimePoint is one decoded XML Point: an absolute UTC instant and its value.
// Timestamp = period start + (position-1) x resolution minutes.
type TimePoint struct {
	Timestamp  time.Time
	Value      float64
	Resolution Resolution
}

// Key returns the canonical identity string for the point's instant,
// an RFC 3339 UTC timestamp such as "2025-06-01T01:00:00Z".
func (p TimePoint) Key() string {
	return p.Timestamp.UTC().Format(time.RFC3339)
}

// PriceSeries holds the decoded points of one price TimeSeries together with
// its contract-type-derived label. A slice (not a map) preserves encounter
// order, which the merge step's last-write-wins contract depends on.
type PriceSeries struct {
	Label  SeriesLabel
	Points []TimePoint
}

// -----------------------------------------------------------------------------
// Composite records
// -----------------------------------------------------------------------------

// PointRecord is the fine-grained unit of persistence: all signal values
// observed for one zone at one instant. Keyed by (zone, timestamp).
type PointRecord struct {
	Zone      string
	Timestamp time.Time
	Fields    map[SeriesLabel]float64
}

// Key returns the record's canonical timestamp key.
func (r *PointRecord) Key() string {
	return r.Timestamp.UTC().Format(time.RFC3339)
}

// SeriesEntry is one dated sample inside a DayRecord array. It marshals to
// the flat wire shape {"timestamp": "...", "<label>": <value>, ...} rather
// than nesting the values under a sub-object.
type SeriesEntry struct {
	Timestamp string
	Values    map[SeriesLabel]float64
}

// MarshalJSON flattens the entry into a single JSON object.
func (e SeriesEntry) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(e.Values)+1)
	flat["timestamp"] = e.Timestamp
	for label, v := range e.Values {
		flat[label] = v
	}
	return json.Marshal(flat)
}

// UnmarshalJSON restores an entry from its flat wire shape.
func (e *SeriesEntry) UnmarshalJSON(data []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}

	e.Values = make(map[SeriesLabel]float64, len(flat))
	for k, raw := range flat {
		if k == "timestamp" {
			if err := json.Unmarshal(raw, &e.Timestamp); err != nil {
				return fmt.Errorf("series entry timestamp: %w", err)
			}
			continue
		}
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("series entry field %s: %w", k, err)
		}
		e.Values[k] = v
	}
	return nil
}

// DayRecord is the per-day unit of persistence: one zone-day bucket holding
// entry arrays grouped by resolution code ("PT15M", "PT60M"), plus optional
// once-per-day summary scalars. Keyed by (zone, day).
type DayRecord struct {
	Zone    string
	Day     string // Calendar date key, "2006-01-02"
	Series  map[string][]SeriesEntry
	Summary map[SeriesLabel]float64
}

// Empty reports whether the record carries no data at all. Empty records are
// never written; an empty day is completed by a later run instead.
func (r *DayRecord) Empty() bool {
	return len(r.Series) == 0 && len(r.Summary) == 0
}
