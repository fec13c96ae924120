// Package merge combines decoded generation and price points for one fetch
// window into composite records, excluding fields the coverage index already
// reports as persisted.
package merge

import (
	"sort"

	"gridsync/internal/coverage"
	"gridsync/internal/model"
)

// Points assembles per-timestamp records from one window's decoded data.
// Generation is processed first, then price series in encounter order, so a
// later point wins when two decoded points collide on the same (key, label).
// A (key, label) pair the index reports as covered is skipped entirely.
func Points(
	zone string,
	generationLabel model.SeriesLabel,
	generation []model.TimePoint,
	prices []model.PriceSeries,
	idx coverage.Index,
) map[string]*model.PointRecord {
	records := make(map[string]*model.PointRecord)

	add := func(p model.TimePoint, label model.SeriesLabel) {
		key := p.Key()
		if idx.Has(key, label) {
			return
		}
		rec, ok := records[key]
		if !ok {
			rec = &model.PointRecord{
				Zone:      zone,
				Timestamp: p.Timestamp.UTC(),
				Fields:    make(map[model.SeriesLabel]float64),
			}
			records[key] = rec
		}
		rec.Fields[label] = p.Value
	}

	for _, p := range generation {
		add(p, generationLabel)
	}
	for _, series := range prices {
		for _, p := range series.Points {
			add(p, series.Label)
		}
	}

	return records
}

// DayOptions configures the per-day reduction.
type DayOptions struct {
	// SummaryLabels names signals reduced to a single once-per-day scalar
	// instead of appearing in the entry arrays. The scalar kept is the value
	// at the greatest timestamp, regardless of slice order.
	SummaryLabels []model.SeriesLabel
}

func (o DayOptions) isSummary(label model.SeriesLabel) bool {
	for _, l := range o.SummaryLabels {
		if l == label {
			return true
		}
	}
	return false
}

// Day assembles one zone-day record: entry arrays grouped by resolution code
// holding flat label->value maps, plus summary scalars. Returns nil when the
// window decoded nothing, so empty days are never written. Whole day buckets
// are re-written on each pass, which lets a later run complete a day that
// was only partially published when first fetched.
func Day(
	zone, dayKey string,
	generationLabel model.SeriesLabel,
	generation []model.TimePoint,
	prices []model.PriceSeries,
	opts DayOptions,
) *model.DayRecord {
	rec := &model.DayRecord{Zone: zone, Day: dayKey}

	// entries[resolution][timestamp] collects values per instant.
	entries := make(map[string]map[string]map[model.SeriesLabel]float64)
	summaryAt := make(map[model.SeriesLabel]string)

	add := func(p model.TimePoint, label model.SeriesLabel) {
		key := p.Key()

		if opts.isSummary(label) {
			// Keep the latest observation of the day.
			if at, ok := summaryAt[label]; ok && key <= at {
				return
			}
			if rec.Summary == nil {
				rec.Summary = make(map[model.SeriesLabel]float64)
			}
			rec.Summary[label] = p.Value
			summaryAt[label] = key
			return
		}

		res := p.Resolution.String()
		byTS, ok := entries[res]
		if !ok {
			byTS = make(map[string]map[model.SeriesLabel]float64)
			entries[res] = byTS
		}
		values, ok := byTS[key]
		if !ok {
			values = make(map[model.SeriesLabel]float64)
			byTS[key] = values
		}
		values[label] = p.Value
	}

	for _, p := range generation {
		add(p, generationLabel)
	}
	for _, series := range prices {
		for _, p := range series.Points {
			add(p, series.Label)
		}
	}

	for res, byTS := range entries {
		bucket := make([]model.SeriesEntry, 0, len(byTS))
		for ts, values := range byTS {
			bucket = append(bucket, model.SeriesEntry{Timestamp: ts, Values: values})
		}
		// RFC 3339 UTC keys sort lexicographically in time order.
		sort.Slice(bucket, func(i, j int) bool {
			return bucket[i].Timestamp < bucket[j].Timestamp
		})
		if rec.Series == nil {
			rec.Series = make(map[string][]model.SeriesEntry)
		}
		rec.Series[res] = bucket
	}

	if rec.Empty() {
		return nil
	}
	return rec
}
