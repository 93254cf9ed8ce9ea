// Package api hosts the HTTP server, middleware, and REST handlers. Notable
// routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/scrape and /v1/test-scrape to submit jobs.
//   - GET/DELETE /v1/jobs/{job_id} for status polling and cancellation.
//   - GET /v1/jobs/{job_id}/export/{json,csv} for downloads.
//   - POST /v1/jobs/{job_id}/chat for questions about scraped content.
package api
