package api

import (
	"encoding/xml"
	"fmt"
	"time"

	"gridsync/internal/model"
)

// Interval start layouts observed in platform documents. The published form
// is minute-precision with a "Z" suffix; second-precision RFC 3339 and
// offset forms appear in older archives.
var intervalLayouts = []string{
	"2006-01-02T15:04Z07:00",
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
}

// parseIntervalStart parses a period start instant and normalizes it to UTC.
func parseIntervalStart(s string) (time.Time, error) {
	for _, layout := range intervalLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized interval start %q", s)
}

// pointTime resolves an XML point position to its absolute instant:
// period start + (position-1) x resolution. Positions are 1-based.
func pointTime(start time.Time, position int, res model.Resolution) time.Time {
	return start.Add(time.Duration(position-1) * res.Duration())
}

// decodeGeneration parses a generation-load document into ordered time
// points. Decoding never fails the run: malformed documents and series with
// missing required elements are logged and skipped.
func (c *Client) decodeGeneration(data []byte) []model.TimePoint {
	var doc marketDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		c.logger.Warn("generation xml parse error", "err", err)
		return nil
	}

	var points []model.TimePoint
	for _, ts := range doc.Series {
		p, ok := c.decodePeriod(ts.Period, "generation")
		if !ok {
			continue
		}

		for _, pt := range p.Points {
			if pt.Position == nil || pt.Quantity == nil {
				continue
			}
			points = append(points, model.TimePoint{
				Timestamp:  pointTime(p.start, *pt.Position, p.resolution),
				Value:      *pt.Quantity,
				Resolution: p.resolution,
			})
		}
	}
	return points
}

// decodePrices parses a publication document into one series per observed
// contract type, in encounter order. Price amounts arrive in a x10
// fixed-point encoding and are scaled down; when the zero-price filter is
// enabled a scaled amount of zero is treated as "no data" and dropped.
func (c *Client) decodePrices(data []byte) []model.PriceSeries {
	var doc marketDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		c.logger.Warn("price xml parse error", "err", err)
		return nil
	}

	var series []model.PriceSeries
	byLabel := make(map[model.SeriesLabel]int)

	for _, ts := range doc.Series {
		if ts.ContractType == "" {
			c.logger.Debug("skipping price series without contract type")
			continue
		}
		label := model.PriceLabel(c.priceDocumentType, ts.ContractType)

		i, ok := byLabel[label]
		if !ok {
			series = append(series, model.PriceSeries{Label: label})
			i = len(series) - 1
			byLabel[label] = i
		}

		p, ok := c.decodePeriod(ts.Period, "price")
		if !ok {
			continue
		}

		for _, pt := range p.Points {
			if pt.Position == nil || pt.Amount == nil {
				continue
			}
			value := *pt.Amount / 10
			if c.dropZeroPrices && value == 0 {
				continue
			}
			series[i].Points = append(series[i].Points, model.TimePoint{
				Timestamp:  pointTime(p.start, *pt.Position, p.resolution),
				Value:      value,
				Resolution: p.resolution,
			})
		}
	}
	return series
}

// decodedPeriod carries a period's resolved start and resolution.
type decodedPeriod struct {
	start      time.Time
	resolution model.Resolution
	Points     []point
}

// decodePeriod validates a series' period. A missing period, interval start,
// or resolution is a defect in the fetched document; the series is skipped.
func (c *Client) decodePeriod(p *period, source string) (decodedPeriod, bool) {
	if p == nil {
		c.logger.Debug("skipping series without period", "source", source)
		return decodedPeriod{}, false
	}
	if p.TimeInterval.Start == "" || p.Resolution == "" {
		c.logger.Warn("skipping series with incomplete period",
			"source", source,
			"start", p.TimeInterval.Start,
			"resolution", p.Resolution,
		)
		return decodedPeriod{}, false
	}

	start, err := parseIntervalStart(p.TimeInterval.Start)
	if err != nil {
		c.logger.Warn("skipping series with bad interval start", "source", source, "err", err)
		return decodedPeriod{}, false
	}

	return decodedPeriod{
		start:      start,
		resolution: model.ParseResolution(p.Resolution),
		Points:     p.Points,
	}, true
}
