package crawler

import (
	"context"
	"time"
)

// JobStore is the job registry. UpdateJob applies fn to a private copy of the
// job and publishes it only when fn returns nil, so readers never observe a
// partially updated record.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	GetJob(ctx context.Context, jobID string) (Job, error)
	UpdateJob(ctx context.Context, jobID string, fn func(*Job) error) error
	DeleteJob(ctx context.Context, jobID string) error
	ListJobs(ctx context.Context) ([]Job, error)
}

// BlobStore writes artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes job lifecycle events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// ResultArchive persists finished jobs for later analysis.
type ResultArchive interface {
	SaveJob(ctx context.Context, job Job) error
	Close()
}

// Fetcher retrieves a page. Failures are reported through PageFetchResult.Err.
type Fetcher interface {
	Fetch(ctx context.Context, url string) PageFetchResult
}

// TextGenerator is the opaque text-generation capability used for custom
// instructions and chat answers.
type TextGenerator interface {
	Generate(ctx context.Context, systemPrompt string, content string) (string, error)
}

// LanguageDetector guesses the ISO 639-1 language code of a text.
type LanguageDetector interface {
	Detect(text string) (string, bool)
}

// Queue provides enqueue/dequeue semantics for scrape jobs.
type Queue interface {
	Enqueue(ctx context.Context, job QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// Hasher computes content fingerprints.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job IDs.
type IDGenerator interface {
	NewID() (string, error)
}
