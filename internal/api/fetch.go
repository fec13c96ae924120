package api

import (
	"context"
	"fmt"
	"net/url"

	"gridsync/internal/model"
	"gridsync/internal/window"
)

// FetchGeneration fetches and decodes the generation time series for one
// zone and window. A transport or HTTP failure that survives the retry
// policy is returned as an error; a 200 response that fails to decode
// yields an empty result and no error.
func (c *Client) FetchGeneration(ctx context.Context, eic string, win window.Window) ([]model.TimePoint, error) {
	query := url.Values{}
	query.Set("securityToken", c.securityToken)
	query.Set("documentType", c.genDocumentType)
	query.Set("processType", c.genProcessType)
	query.Set("in_Domain", eic)
	query.Set("periodStart", win.PeriodStart())
	query.Set("periodEnd", win.PeriodEnd())
	if c.psrType != "" {
		query.Set("psrType", c.psrType)
	}

	body, err := c.getWithRetry(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("fetch generation %s: %w", eic, err)
	}

	return c.decodeGeneration(body), nil
}

// FetchPrices fetches and decodes the price time series for one zone and
// window, one series per contract type observed in the document.
func (c *Client) FetchPrices(ctx context.Context, eic string, win window.Window) ([]model.PriceSeries, error) {
	query := url.Values{}
	query.Set("securityToken", c.securityToken)
	query.Set("documentType", c.priceDocumentType)
	query.Set("in_Domain", eic)
	query.Set("out_Domain", eic)
	query.Set("periodStart", win.PeriodStart())
	query.Set("periodEnd", win.PeriodEnd())

	body, err := c.getWithRetry(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("fetch prices %s: %w", eic, err)
	}

	return c.decodePrices(body), nil
}
