package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/lingopane/lingopane-backend/internal/apierr"
	"github.com/lingopane/lingopane-backend/internal/docsync"
	"github.com/lingopane/lingopane-backend/internal/logger"
	"github.com/lingopane/lingopane-backend/internal/types"
)

// SnapshotService exports a translated document to the bucket as a JSON
// snapshot: source blocks paired with their current translation state. The
// export is what the share/download feature serves.
type SnapshotService interface {
	Export(ctx context.Context, doc *types.Document, blocks []*types.ContentBlock, states []docsync.BlockState) (string, error)
	GetPublicURL(key string) string
}

type snapshotService struct {
	log           *logger.Logger
	storageClient *storage.Client
	bucketName    string
	cdnDomain     string
}

func NewSnapshotService(log *logger.Logger) (SnapshotService, error) {
	serviceLog := log.With("service", "SnapshotService")
	bucket := os.Getenv("GCS_BUCKET_NAME")
	if bucket == "" {
		return nil, fmt.Errorf("missing env var GCS_BUCKET_NAME")
	}
	cdnDomain := os.Getenv("CDN_DOMAIN")
	saPath := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON")
	if saPath == "" {
		serviceLog.Warn("GOOGLE_APPLICATION_CREDENTIALS_JSON not set; storage client will rely on ADC")
	}
	ctx := context.Background()
	var stClient *storage.Client
	var err error
	if saPath != "" {
		stClient, err = storage.NewClient(ctx, option.WithCredentialsFile(saPath), option.WithScopes(storage.ScopeReadWrite))
	} else {
		stClient, err = storage.NewClient(ctx, option.WithScopes(storage.ScopeReadWrite))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &snapshotService{
		log:           serviceLog,
		storageClient: stClient,
		bucketName:    bucket,
		cdnDomain:     cdnDomain,
	}, nil
}

type snapshotBlock struct {
	ID          uuid.UUID               `json:"id"`
	Type        types.BlockType         `json:"type"`
	SourceText  string                  `json:"source_text"`
	Translation string                  `json:"translation,omitempty"`
	Status      types.TranslationStatus `json:"status"`
	Version     int                     `json:"version"`
	ErrorCode   string                  `json:"error_code,omitempty"`
}

type snapshotPayload struct {
	DocumentID uuid.UUID       `json:"document_id"`
	Title      string          `json:"title"`
	SourceURL  string          `json:"source_url"`
	SourceLang string          `json:"source_lang,omitempty"`
	TargetLang string          `json:"target_lang,omitempty"`
	ExportedAt time.Time       `json:"exported_at"`
	Blocks     []snapshotBlock `json:"blocks"`
}

func (s *snapshotService) Export(ctx context.Context, doc *types.Document, blocks []*types.ContentBlock, states []docsync.BlockState) (string, error) {
	stateByBlock := make(map[uuid.UUID]docsync.BlockState, len(states))
	for _, st := range states {
		stateByBlock[st.BlockID] = st
	}

	payload := snapshotPayload{
		DocumentID: doc.ID,
		Title:      doc.Title,
		SourceURL:  doc.SourceURL,
		SourceLang: doc.SourceLang,
		TargetLang: doc.TargetLang,
		ExportedAt: time.Now().UTC(),
	}
	for _, b := range blocks {
		st := stateByBlock[b.ID]
		payload.Blocks = append(payload.Blocks, snapshotBlock{
			ID:          b.ID,
			Type:        b.Type,
			SourceText:  b.Text,
			Translation: st.Text,
			Status:      st.Status,
			Version:     st.Version,
			ErrorCode:   st.ErrorCode,
		})
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("snapshots/%s/%d.json", doc.ID, time.Now().Unix())
	if err := s.upload(ctx, key, bytes.NewReader(raw)); err != nil {
		return "", apierr.New(http.StatusBadGateway, "SNAPSHOT_UPLOAD_FAILED", err)
	}
	s.log.Info("Exported document snapshot", "document_id", doc.ID, "key", key)
	return key, nil
}

func (s *snapshotService) upload(ctx context.Context, key string, body io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	w := s.storageClient.Bucket(s.bucketName).Object(key).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

func (s *snapshotService) GetPublicURL(key string) string {
	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", strings.TrimSuffix(s.cdnDomain, "/"), key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucketName, key)
}
