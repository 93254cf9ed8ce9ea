// Package crawler defines the types and contracts shared by the extraction
// pipeline, the job registry and the crawl orchestrator.
//
// A Job moves pending -> running -> completed|error. Each processed page
// becomes a PageResult holding the cleaned text, its quality score and the
// classified links found on it.
package crawler
