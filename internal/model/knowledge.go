package model

import (
	"time"
)

// EntryStatus is the ingestion state of a knowledge entry.
type EntryStatus string

const (
	EntryStatusReady      EntryStatus = "ready"
	EntryStatusProcessing EntryStatus = "processing"
	EntryStatusError      EntryStatus = "error"
)

// EntryMetadata links a knowledge entry back to its raw upload.
type EntryMetadata struct {
	StorageID  string  `json:"storage_id"`
	UploadedBy string  `json:"uploaded_by"`
	Filename   string  `json:"filename"`
	Category   *string `json:"category"`
}

// KnowledgeEntry is one ingested document in an organization's namespace.
// The namespace equals the organization id and is a strict isolation
// boundary: no query crosses it.
type KnowledgeEntry struct {
	ID          string        `json:"id" db:"id"`
	Namespace   string        `json:"namespace" db:"namespace"`
	Key         string        `json:"key" db:"key"`
	Title       string        `json:"title" db:"title"`
	Text        string        `json:"text" db:"content"`
	ContentHash string        `json:"content_hash" db:"content_hash"`
	Status      EntryStatus   `json:"status" db:"status"`
	Metadata    EntryMetadata `json:"metadata"`
	Seq         int64         `json:"-" db:"seq"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
}

// AddEntryResult reports the outcome of an add-with-dedup.
type AddEntryResult struct {
	EntryID string
	Created bool
}

// EntryPage is one page of a namespace listing. Ordering is by the
// monotonic Seq column, stable across pages.
type EntryPage struct {
	Page       []KnowledgeEntry
	IsDone     bool
	NextCursor string
}

// SearchMatch is one relevance-ranked search hit.
type SearchMatch struct {
	Entry KnowledgeEntry
	Score float64
}
