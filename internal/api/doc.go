// Package api provides the ENTSO-E Transparency Platform client: windowed
// GET requests with an injected retry policy, and decoding of the two XML
// document families (generation-load and publication/price) into normalized
// point sequences.
//
// Endpoint: https://web-api.tp.entsoe.eu/api
//
// Key document types: A75 (actual generation per type), A44 (price document).
package api
