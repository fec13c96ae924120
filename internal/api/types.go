package api

// XML document structures for the two schema families the platform serves:
// generation-load documents (urn:iec62325.351:tc57wg16:451-6) and
// publication/price documents (urn:iec62325.351:tc57wg16:451-3). The element
// tags carry no namespace so decoding matches by local name and covers both
// families, including schema-version bumps within a family.

type marketDocument struct {
	Series []timeSeries `xml:"TimeSeries"`
}

type timeSeries struct {
	// ContractType distinguishes price products (e.g. A01 day-ahead,
	// A07 intraday). Absent on generation series.
	ContractType string  `xml:"contract_MarketAgreement.type"`
	Period       *period `xml:"Period"`
}

type period struct {
	TimeInterval timeInterval `xml:"timeInterval"`
	Resolution   string       `xml:"resolution"`
	Points       []point      `xml:"Point"`
}

type timeInterval struct {
	Start string `xml:"start"`
	End   string `xml:"end"`
}

type point struct {
	Position *int     `xml:"position"`
	Quantity *float64 `xml:"quantity"`
	Amount   *float64 `xml:"price.amount"`
}
