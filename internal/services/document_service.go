package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/legalease/internal/extract"
	"github.com/yoockh/legalease/internal/models"
	pgrepo "github.com/yoockh/legalease/internal/repositories/postgres"
	"github.com/yoockh/legalease/internal/storage"
	"github.com/yoockh/legalease/internal/utils"
)

// DownloadURLTTL bounds signed links returned by ListByUser.
const DownloadURLTTL = 15 * time.Minute

// Upload is a raw file as received from a client.
type Upload struct {
	FileName string
	MimeType string
	Payload  []byte
}

type DocumentService interface {
	// Parse extracts an upload into a Document. It has no side effects.
	Parse(ctx context.Context, up Upload) (*models.Document, error)
	// Archive stores the original payload and its metadata for userID.
	Archive(ctx context.Context, userID string, doc *models.Document, up Upload) (*models.DocumentRecord, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.DocumentRecord, error)
}

type documentService struct {
	extractor *extract.Extractor
	repo      pgrepo.DocumentRepository
	uploader  storage.Uploader
	maxBytes  int64
	logger    *logrus.Logger
}

// NewDocumentService builds a DocumentService. repo and uploader may be nil,
// in which case Archive only skips the missing step.
func NewDocumentService(extractor *extract.Extractor, repo pgrepo.DocumentRepository, uploader storage.Uploader, maxBytes int64, logger *logrus.Logger) DocumentService {
	if logger == nil {
		logger = logrus.New()
	}
	return &documentService{extractor: extractor, repo: repo, uploader: uploader, maxBytes: maxBytes, logger: logger}
}

func (s *documentService) Parse(_ context.Context, up Upload) (*models.Document, error) {
	const op = "DocumentService.Parse"

	name := filepath.Base(strings.TrimSpace(up.FileName))
	if name == "" || name == "." || name == "/" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "file name is required", nil)
	}
	if s.maxBytes > 0 && int64(len(up.Payload)) > s.maxBytes {
		return nil, utils.E(utils.CodeInvalidArgument, op, "file is too large", nil)
	}

	typ := DetectDocumentType(up.MimeType, name, up.Payload)
	res, err := s.extractor.Extract(up.Payload, typ)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		ID:           uuid.NewString(),
		Identity:     DocumentIdentity(name, up.Payload),
		FileName:     name,
		Type:         typ,
		Text:         res.Text,
		Pages:        res.Pages,
		SkippedPages: res.SkippedPages,
		UploadedAt:   time.Now().UTC(),
	}

	log := s.logger.WithFields(logrus.Fields{"document_id": doc.Identity, "type": typ, "bytes": len(up.Payload)})
	if len(doc.SkippedPages) > 0 {
		log = log.WithField("skipped_pages", doc.SkippedPages)
	}
	log.Info("document extracted")
	return doc, nil
}

func (s *documentService) Archive(ctx context.Context, userID string, doc *models.Document, up Upload) (*models.DocumentRecord, error) {
	const op = "DocumentService.Archive"

	if userID == "" || doc == nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id and document are required", nil)
	}

	row := &models.DocumentRecord{
		ID:         doc.ID,
		UserID:     userID,
		Identity:   doc.Identity,
		FileName:   doc.FileName,
		FileSize:   len(up.Payload),
		MimeType:   string(doc.Type),
		Pages:      doc.Pages,
		TextLength: len([]rune(doc.Text)),
		UploadAt:   doc.UploadedAt,
	}
	for _, p := range doc.SkippedPages {
		row.SkippedPages = append(row.SkippedPages, int64(p))
	}
	if row.SkippedPages == nil {
		row.SkippedPages = pq.Int64Array{}
	}

	if s.uploader != nil {
		object := storage.ObjectName(userID, doc.Identity, doc.FileName)
		path, err := s.uploader.Upload(ctx, object, string(doc.Type), bytes.NewReader(up.Payload), int64(len(up.Payload)))
		if err != nil {
			return nil, utils.E(utils.CodeUnavailable, op, "failed to upload file", err)
		}
		row.FilePath = path
	}

	if s.repo != nil {
		if err := s.repo.Insert(ctx, row); err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to persist document metadata", err)
		}
	}
	return row, nil
}

func (s *documentService) ListByUser(ctx context.Context, userID string, limit int) ([]models.DocumentRecord, error) {
	const op = "DocumentService.ListByUser"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	if s.repo == nil {
		return []models.DocumentRecord{}, nil
	}
	rows, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list documents", err)
	}

	if signer, ok := s.uploader.(storage.Signer); ok {
		for i := range rows {
			if rows[i].FilePath == "" {
				continue
			}
			object := storage.ObjectName(userID, rows[i].Identity, rows[i].FileName)
			url, err := signer.SignedGetURL(ctx, object, DownloadURLTTL)
			if err != nil {
				s.logger.WithError(err).WithField("document_id", rows[i].ID).Warn("failed to sign download url")
				continue
			}
			rows[i].DownloadURL = url
		}
	}
	return rows, nil
}

// DocumentIdentity is stable for identical (name, content) uploads.
func DocumentIdentity(fileName string, payload []byte) string {
	sum := sha256.Sum256(payload)
	return fileName + "@" + hex.EncodeToString(sum[:])[:12]
}

// DetectDocumentType resolves the declared type, sniffing the payload when
// the client did not send a usable MIME type.
func DetectDocumentType(declared, fileName string, payload []byte) models.DocumentType {
	if typ := models.ParseDocumentType(declared, fileName); typ != models.DocumentTypeUnsupported {
		return typ
	}
	d := strings.TrimSpace(declared)
	if d != "" && !strings.HasPrefix(d, "application/octet-stream") {
		return models.DocumentTypeUnsupported
	}
	return models.ParseDocumentType(http.DetectContentType(payload), "")
}
