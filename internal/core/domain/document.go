package domain

import "time"

type SourceStatus string

const (
	SourceQueued     SourceStatus = "queued"
	SourceProcessing SourceStatus = "processing"
	SourceReady      SourceStatus = "ready"
	SourceFailed     SourceStatus = "failed"
)

// Source is an ingestable location: an http(s) URL or a path readable by a file loader.
type Source struct {
	ID             string       `json:"id"`
	Location       string       `json:"location"`
	Status         SourceStatus `json:"status"`
	TotalChunks    int          `json:"total_chunks"`
	UploadedChunks int          `json:"uploaded_chunks"`
	Error          string       `json:"error,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// LoadedDocument is raw text extracted from a source before splitting.
type LoadedDocument struct {
	Source string
	Title  string
	Text   string
}

type IngestReport struct {
	SourceID       string `json:"source_id"`
	TotalChunks    int    `json:"total_chunks"`
	UploadedChunks int    `json:"uploaded_chunks"`
	FailedBatches  int    `json:"failed_batches"`
}
