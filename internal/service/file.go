package service

import (
	"context"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/echo-labs/support-platform/internal/apperr"
	"github.com/echo-labs/support-platform/internal/extract"
	"github.com/echo-labs/support-platform/internal/model"
	"github.com/echo-labs/support-platform/internal/rag"
	"github.com/echo-labs/support-platform/internal/storage"
	"github.com/echo-labs/support-platform/internal/store"
	"github.com/echo-labs/support-platform/pkg/logger"
)

// FileService manages the knowledge-base file catalog: upload, listing and
// removal of indexed documents.
type FileService struct {
	blobs     storage.BlobStore
	extractor *extract.Extractor
	rag       *rag.Service
	knowledge store.KnowledgeStore
	logger    *logger.Logger
}

// NewFileService creates a new file service.
func NewFileService(
	blobs storage.BlobStore,
	extractor *extract.Extractor,
	ragSvc *rag.Service,
	knowledge store.KnowledgeStore,
	log *logger.Logger,
) *FileService {
	return &FileService{
		blobs:     blobs,
		extractor: extractor,
		rag:       ragSvc,
		knowledge: knowledge,
		logger:    log,
	}
}

// AddFile stores an uploaded file, extracts its text and indexes it in the
// organization's namespace. Content already present in the namespace is
// deduplicated: the existing entry is returned and the fresh blob released.
func (s *FileService) AddFile(ctx context.Context, organizationID string, req *model.AddFileRequest) (*model.AddFileResponse, error) {
	if req.Filename == "" || len(req.Bytes) == 0 {
		return nil, apperr.BadRequest("filename and bytes are required")
	}

	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = extract.GuessMimeType(req.Filename, req.Bytes)
	}
	if !extract.Allowed(mimeType) {
		return nil, apperr.New(apperr.CodeUnsupportedType, "MIME type not allowed: "+mimeType)
	}

	storageID, err := s.blobs.Store(ctx, organizationID, req.Filename, mimeType, req.Bytes)
	if err != nil {
		return nil, err
	}

	text, err := s.extractor.Text(ctx, req.Filename, mimeType, req.Bytes)
	if err != nil {
		if delErr := s.blobs.Delete(ctx, storageID); delErr != nil {
			s.logger.Warn("failed to release blob after extraction failure",
				zap.String("storage_id", storageID), zap.Error(delErr))
		}
		return nil, err
	}

	var category *string
	if req.Category != "" {
		category = &req.Category
	}

	result, err := s.rag.Add(ctx, rag.AddParams{
		Namespace:   organizationID,
		Key:         req.Filename,
		Title:       req.Filename,
		Text:        text,
		ContentHash: rag.HashBytes(req.Bytes),
		Metadata: model.EntryMetadata{
			StorageID:  storageID,
			UploadedBy: organizationID,
			Filename:   req.Filename,
			Category:   category,
		},
	})
	if err != nil {
		if delErr := s.blobs.Delete(ctx, storageID); delErr != nil {
			s.logger.Warn("failed to release blob after indexing failure",
				zap.String("storage_id", storageID), zap.Error(delErr))
		}
		return nil, err
	}

	// Duplicate content: the existing entry keeps its original blob, this
	// upload's blob is released.
	if !result.Created {
		if err := s.blobs.Delete(ctx, storageID); err != nil {
			s.logger.Warn("failed to release duplicate blob",
				zap.String("storage_id", storageID), zap.Error(err))
		}
	}

	url, err := s.blobs.GetURL(ctx, storageID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("file added",
		zap.String("organization_id", organizationID),
		zap.String("entry_id", result.EntryID),
		zap.String("filename", req.Filename),
		zap.Bool("created", result.Created),
	)
	return &model.AddFileResponse{EntryID: result.EntryID, URL: url}, nil
}

// DeleteFile removes an entry and its stored blob. The blob is deleted
// first; the entry row is the authoritative record and goes last.
func (s *FileService) DeleteFile(ctx context.Context, organizationID, entryID string) error {
	exists, err := s.knowledge.NamespaceExists(ctx, organizationID)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.Unauthorized("Invalid namespace")
	}

	entry, err := s.knowledge.Get(ctx, entryID)
	if err != nil {
		return err
	}
	if entry == nil {
		return apperr.NotFound("Entry not found")
	}
	if entry.Metadata.UploadedBy != organizationID {
		return apperr.Unauthorized("Invalid organization ID")
	}

	if entry.Metadata.StorageID != "" {
		if err := s.blobs.Delete(ctx, entry.Metadata.StorageID); err != nil {
			s.logger.Warn("failed to delete blob",
				zap.String("storage_id", entry.Metadata.StorageID), zap.Error(err))
		}
	}

	if err := s.knowledge.Delete(ctx, entryID); err != nil {
		return err
	}

	s.logger.Info("file deleted",
		zap.String("organization_id", organizationID),
		zap.String("entry_id", entryID),
	)
	return nil
}

// ListFiles returns one page of the organization's file catalog, optionally
// filtered by category. The cursor is the Seq of the last entry seen.
func (s *FileService) ListFiles(ctx context.Context, organizationID, category, cursor string, pageSize int) (*model.ListFilesResponse, error) {
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	exists, err := s.knowledge.NamespaceExists(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return &model.ListFilesResponse{Page: []model.PublicFile{}, IsDone: true}, nil
	}

	var afterSeq int64
	if cursor != "" {
		afterSeq, err = strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			return nil, apperr.BadRequest("invalid cursor")
		}
	}

	entries, err := s.knowledge.List(ctx, organizationID, afterSeq, pageSize)
	if err != nil {
		return nil, err
	}

	files := make([]model.PublicFile, 0, len(entries))
	for _, entry := range entries {
		file := s.toPublicFile(ctx, entry)
		if category != "" && (file.Category == nil || *file.Category != category) {
			continue
		}
		files = append(files, file)
	}

	resp := &model.ListFilesResponse{
		Page:   files,
		IsDone: len(entries) < pageSize,
	}
	if len(entries) > 0 {
		resp.NextCursor = strconv.FormatInt(entries[len(entries)-1].Seq, 10)
	}
	return resp, nil
}

// toPublicFile converts an entry into its dashboard representation.
func (s *FileService) toPublicFile(ctx context.Context, entry model.KnowledgeEntry) model.PublicFile {
	filename := entry.Key
	if filename == "" {
		filename = "Unknown"
	}

	extension := "txt"
	if i := strings.LastIndex(filename, "."); i >= 0 && i < len(filename)-1 {
		extension = strings.ToLower(filename[i+1:])
	}

	size := "unknown"
	var url *string
	if entry.Metadata.StorageID != "" {
		if meta, err := s.blobs.GetMetadata(ctx, entry.Metadata.StorageID); err == nil && meta != nil {
			size = formatFileSize(meta.Size)
		}
		if u, err := s.blobs.GetURL(ctx, entry.Metadata.StorageID); err == nil {
			url = u
		}
	}

	status := model.EntryStatusError
	switch entry.Status {
	case model.EntryStatusReady:
		status = model.EntryStatusReady
	case model.EntryStatusProcessing:
		status = model.EntryStatusProcessing
	}

	return model.PublicFile{
		ID:       entry.ID,
		Name:     filename,
		Type:     extension,
		Size:     size,
		Status:   status,
		URL:      url,
		Category: entry.Metadata.Category,
	}
}

// formatFileSize renders a byte count with one decimal place at most.
func formatFileSize(bytes int64) string {
	if bytes == 0 {
		return "0 B"
	}

	sizes := []string{"B", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizes) {
		i = len(sizes) - 1
	}

	value := math.Round(float64(bytes)/math.Pow(1024, float64(i))*10) / 10
	return strconv.FormatFloat(value, 'f', -1, 64) + " " + sizes[i]
}
