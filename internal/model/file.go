package model

// PublicFile is the dashboard-facing view of a knowledge entry.
type PublicFile struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Type     string      `json:"type"`
	Size     string      `json:"size"`
	Status   EntryStatus `json:"status"`
	URL      *string     `json:"url"`
	Category *string     `json:"category,omitempty"`
}

// AddFileRequest is the dashboard upload request.
type AddFileRequest struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type,omitempty"`
	Bytes    []byte `json:"bytes"`
	Category string `json:"category,omitempty"`
}

// AddFileResponse reports the stored file's entry id and a retrieval URL.
type AddFileResponse struct {
	EntryID string  `json:"entry_id"`
	URL     *string `json:"url"`
}

// ListFilesResponse is one page of the file catalog.
type ListFilesResponse struct {
	Page       []PublicFile `json:"page"`
	IsDone     bool         `json:"is_done"`
	NextCursor string       `json:"next_cursor,omitempty"`
}
