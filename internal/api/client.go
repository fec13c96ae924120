package api

import (
	"log/slog"
	"net/http"
	"time"

	"gridsync/internal/model"
)

// Client provides access to the ENTSO-E Transparency Platform REST API.
type Client struct {
	baseURL       string
	securityToken string
	httpClient    *http.Client
	logger        *slog.Logger

	retry RetryPolicy

	// Query type codes for the two document families.
	genDocumentType   string
	genProcessType    string
	psrType           string // optional resource-type filter
	priceDocumentType string

	// dropZeroPrices treats a zero price amount as "no data".
	dropZeroPrices bool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new Transparency Platform client.
func NewClient(baseURL, securityToken string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:       baseURL,
		securityToken: securityToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:            slog.Default(),
		retry:             DefaultRetryPolicy(),
		genDocumentType:   "A75",
		genProcessType:    "A16",
		priceDocumentType: "A44",
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRetryPolicy sets the retry policy for transient upstream failures.
func WithRetryPolicy(p RetryPolicy) ClientOption {
	return func(c *Client) {
		c.retry = p
	}
}

// WithGenerationTypes sets the document, process, and resource type codes for
// generation queries. An empty psrType omits the resource filter.
func WithGenerationTypes(documentType, processType, psrType string) ClientOption {
	return func(c *Client) {
		c.genDocumentType = documentType
		c.genProcessType = processType
		c.psrType = psrType
	}
}

// WithPriceDocumentType sets the document type code for price queries.
func WithPriceDocumentType(documentType string) ClientOption {
	return func(c *Client) {
		c.priceDocumentType = documentType
	}
}

// WithZeroPriceFilter discards decoded price points whose amount is zero.
func WithZeroPriceFilter(drop bool) ClientOption {
	return func(c *Client) {
		c.dropZeroPrices = drop
	}
}

// GenerationLabel returns the series label produced by generation fetches,
// derived from the configured type codes.
func (c *Client) GenerationLabel() model.SeriesLabel {
	return model.GenerationLabel(c.genDocumentType, c.genProcessType, c.psrType)
}
