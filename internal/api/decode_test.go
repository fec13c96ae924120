package api

import (
	"testing"
	"time"
)

const genXML = `<?xml version="1.0" encoding="UTF-8"?>
<GL_MarketDocument xmlns="urn:iec62325.351:tc57wg16:451-6:generationloaddocument:3:0">
  <TimeSeries>
    <Period>
      <timeInterval>
        <start>2025-06-01T00:00Z</start>
        <end>2025-06-02T00:00Z</end>
      </timeInterval>
      <resolution>PT15M</resolution>
      <Point><position>1</position><quantity>100.5</quantity></Point>
      <Point><position>5</position><quantity>120</quantity></Point>
    </Period>
  </TimeSeries>
</GL_MarketDocument>`

const priceXML = `<?xml version="1.0" encoding="UTF-8"?>
<Publication_MarketDocument xmlns="urn:iec62325.351:tc57wg16:451-3:publicationdocument:7:3">
  <TimeSeries>
    <contract_MarketAgreement.type>A01</contract_MarketAgreement.type>
    <Period>
      <timeInterval>
        <start>2025-06-01T00:00Z</start>
        <end>2025-06-02T00:00Z</end>
      </timeInterval>
      <resolution>PT60M</resolution>
      <Point><position>1</position><price.amount>453</price.amount></Point>
      <Point><position>2</position><price.amount>0</price.amount></Point>
      <Point><position>3</position><price.amount>512</price.amount></Point>
    </Period>
  </TimeSeries>
  <TimeSeries>
    <contract_MarketAgreement.type>A07</contract_MarketAgreement.type>
    <Period>
      <timeInterval>
        <start>2025-06-01T00:00Z</start>
        <end>2025-06-02T00:00Z</end>
      </timeInterval>
      <resolution>PT60M</resolution>
      <Point><position>1</position><price.amount>300</price.amount></Point>
    </Period>
  </TimeSeries>
</Publication_MarketDocument>`

func TestDecodeGeneration(t *testing.T) {
	c := NewClient("https://example.com", "token")

	points := c.decodeGeneration([]byte(genXML))
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}

	// Position 1 at the period start.
	want := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	if !points[0].Timestamp.Equal(want) {
		t.Errorf("points[0].Timestamp = %v, want %v", points[0].Timestamp, want)
	}
	if points[0].Value != 100.5 {
		t.Errorf("points[0].Value = %v, want 100.5", points[0].Value)
	}

	// Position 5 at 15-minute resolution lands one hour in.
	want = time.Date(2025, 6, 1, 1, 0, 0, 0, time.UTC)
	if !points[1].Timestamp.Equal(want) {
		t.Errorf("points[1].Timestamp = %v, want %v", points[1].Timestamp, want)
	}
	if points[1].Key() != "2025-06-01T01:00:00Z" {
		t.Errorf("points[1].Key() = %q, want %q", points[1].Key(), "2025-06-01T01:00:00Z")
	}
}

func TestDecodePrices(t *testing.T) {
	c := NewClient("https://example.com", "token")

	series := c.decodePrices([]byte(priceXML))
	if len(series) != 2 {
		t.Fatalf("got %d series, want 2", len(series))
	}

	// Contract-type encounter order is preserved.
	if series[0].Label != "A44_A01" {
		t.Errorf("series[0].Label = %q, want A44_A01", series[0].Label)
	}
	if series[1].Label != "A44_A07" {
		t.Errorf("series[1].Label = %q, want A44_A07", series[1].Label)
	}

	// Amounts use a x10 fixed-point encoding: 453 -> 45.3.
	if len(series[0].Points) != 3 {
		t.Fatalf("A44_A01 has %d points, want 3", len(series[0].Points))
	}
	if series[0].Points[0].Value != 45.3 {
		t.Errorf("first price = %v, want 45.3", series[0].Points[0].Value)
	}
	if series[0].Points[1].Value != 0 {
		t.Errorf("zero price retained as %v, want 0 (filter disabled)", series[0].Points[1].Value)
	}
}

func TestDecodePricesZeroFilter(t *testing.T) {
	c := NewClient("https://example.com", "token", WithZeroPriceFilter(true))

	series := c.decodePrices([]byte(priceXML))
	if len(series[0].Points) != 2 {
		t.Fatalf("A44_A01 has %d points, want 2 after zero filter", len(series[0].Points))
	}
	for _, p := range series[0].Points {
		if p.Value == 0 {
			t.Errorf("zero price survived the filter at %v", p.Timestamp)
		}
	}
	// Non-zero points keep their positions' timestamps.
	want := time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC)
	if !series[0].Points[1].Timestamp.Equal(want) {
		t.Errorf("points[1].Timestamp = %v, want %v", series[0].Points[1].Timestamp, want)
	}
}

func TestDecodeSkipsBrokenSeries(t *testing.T) {
	c := NewClient("https://example.com", "token")

	t.Run("malformed xml", func(t *testing.T) {
		if got := c.decodeGeneration([]byte("<GL_MarketDocument><unclosed")); got != nil {
			t.Errorf("got %v, want nil", got)
		}
		if got := c.decodePrices([]byte("not xml at all")); got != nil {
			t.Errorf("got %v, want nil", got)
		}
	})

	t.Run("series without period", func(t *testing.T) {
		doc := `<GL_MarketDocument xmlns="urn:iec62325.351:tc57wg16:451-6:generationloaddocument:3:0">
  <TimeSeries></TimeSeries>
</GL_MarketDocument>`
		if got := c.decodeGeneration([]byte(doc)); len(got) != 0 {
			t.Errorf("got %d points, want 0", len(got))
		}
	})

	t.Run("period without interval start", func(t *testing.T) {
		doc := `<GL_MarketDocument>
  <TimeSeries>
    <Period>
      <resolution>PT60M</resolution>
      <Point><position>1</position><quantity>5</quantity></Point>
    </Period>
  </TimeSeries>
</GL_MarketDocument>`
		if got := c.decodeGeneration([]byte(doc)); len(got) != 0 {
			t.Errorf("got %d points, want 0", len(got))
		}
	})

	t.Run("price series without contract type", func(t *testing.T) {
		doc := `<Publication_MarketDocument>
  <TimeSeries>
    <Period>
      <timeInterval><start>2025-06-01T00:00Z</start></timeInterval>
      <resolution>PT60M</resolution>
      <Point><position>1</position><price.amount>100</price.amount></Point>
    </Period>
  </TimeSeries>
</Publication_MarketDocument>`
		if got := c.decodePrices([]byte(doc)); len(got) != 0 {
			t.Errorf("got %d series, want 0", len(got))
		}
	})

	t.Run("point without position or amount", func(t *testing.T) {
		doc := `<Publication_MarketDocument>
  <TimeSeries>
    <contract_MarketAgreement.type>A01</contract_MarketAgreement.type>
    <Period>
      <timeInterval><start>2025-06-01T00:00Z</start></timeInterval>
      <resolution>PT60M</resolution>
      <Point><position>1</position></Point>
      <Point><price.amount>200</price.amount></Point>
      <Point><position>2</position><price.amount>200</price.amount></Point>
    </Period>
  </TimeSeries>
</Publication_MarketDocument>`
		series := c.decodePrices([]byte(doc))
		if len(series) != 1 || len(series[0].Points) != 1 {
			t.Fatalf("got %+v, want one series with one point", series)
		}
		if series[0].Points[0].Value != 20 {
			t.Errorf("value = %v, want 20", series[0].Points[0].Value)
		}
	})
}

func TestDecodeUnknownResolutionFallsBack(t *testing.T) {
	doc := `<GL_MarketDocument>
  <TimeSeries>
    <Period>
      <timeInterval><start>2025-06-01T00:00Z</start></timeInterval>
      <resolution>PT30M</resolution>
      <Point><position>2</position><quantity>7</quantity></Point>
    </Period>
  </TimeSeries>
</GL_MarketDocument>`

	c := NewClient("https://example.com", "token")
	points := c.decodeGeneration([]byte(doc))
	if len(points) != 1 {
		t.Fatalf("got %d points, want 1", len(points))
	}

	// Unknown resolutions fall back to 60 minutes.
	want := time.Date(2025, 6, 1, 1, 0, 0, 0, time.UTC)
	if !points[0].Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", points[0].Timestamp, want)
	}
}

func TestParseIntervalStart(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-06-01T00:00Z", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
		{"2025-06-01T22:45:00Z", time.Date(2025, 6, 1, 22, 45, 0, 0, time.UTC)},
		{"2025-06-01T02:00+02:00", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
		{"2025-06-01T00:00", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseIntervalStart(tt.in)
			if err != nil {
				t.Fatalf("parseIntervalStart(%q) failed: %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("parseIntervalStart(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if got.Location() != time.UTC {
				t.Errorf("location = %v, want UTC", got.Location())
			}
		})
	}

	if _, err := parseIntervalStart("June 1st 2025"); err == nil {
		t.Error("expected error for unrecognized layout")
	}
}
