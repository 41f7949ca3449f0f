package models

import (
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/lib/pq"
)

// DocumentType is the declared format of an upload. It is resolved once, at
// the extraction boundary.
type DocumentType string

const (
	DocumentTypePlainText   DocumentType = "text/plain"
	DocumentTypePDF         DocumentType = "application/pdf"
	DocumentTypeUnsupported DocumentType = ""
)

// ParseDocumentType maps a declared MIME type (parameters allowed) to a
// DocumentType, falling back to the file extension when the MIME type is
// missing or generic.
func ParseDocumentType(mimeType, fileName string) DocumentType {
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		switch strings.ToLower(mt) {
		case string(DocumentTypePlainText):
			return DocumentTypePlainText
		case string(DocumentTypePDF):
			return DocumentTypePDF
		case "application/octet-stream":
		default:
			return DocumentTypeUnsupported
		}
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".txt":
		return DocumentTypePlainText
	case ".pdf":
		return DocumentTypePDF
	default:
		return DocumentTypeUnsupported
	}
}

// Document is an extracted upload. It is immutable once built; a new upload
// replaces it wholesale.
type Document struct {
	ID           string       `json:"id"`
	Identity     string       `json:"identity"`
	FileName     string       `json:"file_name"`
	Type         DocumentType `json:"type"`
	Text         string       `json:"-"`
	Pages        int          `json:"pages,omitempty"`
	SkippedPages []int        `json:"skipped_pages,omitempty"`
	UploadedAt   time.Time    `json:"uploaded_at"`
}

// Preview returns at most n runes of the document text.
func (d *Document) Preview(n int) string {
	if d == nil {
		return ""
	}
	r := []rune(d.Text)
	if len(r) <= n {
		return d.Text
	}
	return string(r[:n]) + "..."
}

// DocumentRecord is the persisted metadata of an upload.
type DocumentRecord struct {
	ID       string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID   string `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	Identity string `gorm:"column:identity;type:text;index" json:"identity"`
	FileName string `gorm:"column:file_name;type:text" json:"file_name"`
	FilePath string `gorm:"column:file_path;type:text" json:"file_path"`

	FileSize int    `gorm:"column:file_size;type:integer" json:"file_size"`
	MimeType string `gorm:"column:mime_type;type:text" json:"mime_type"`

	Pages        int           `gorm:"column:pages;type:integer" json:"pages"`
	SkippedPages pq.Int64Array `gorm:"column:skipped_pages;type:integer[]" json:"skipped_pages"`
	TextLength   int           `gorm:"column:text_length;type:integer" json:"text_length"`

	UploadAt time.Time `gorm:"column:upload_at;type:timestamptz" json:"upload_at"`

	DownloadURL string `gorm:"-" json:"download_url,omitempty"`
}

func (DocumentRecord) TableName() string { return "documents" }
