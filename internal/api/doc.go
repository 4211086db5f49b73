// Package api hosts the operational HTTP surface that runs alongside a crawl.
// Routes:
//   - GET /healthz and /readyz for liveness and store reachability.
//   - GET /metrics for Prometheus scraping.
//   - GET /stats for live frontier and enrichment cache counts.
package api
