package storage

import (
	"context"
	"io"
	"time"
)

// Uploader persists original document payloads.
type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader, size int64) (storedPath string, err error)
}

type Signer interface {
	SignedGetURL(ctx context.Context, objectName string, ttl time.Duration) (string, error)
}

// ObjectName places a document under its owner's prefix.
func ObjectName(userID, identity, fileName string) string {
	return "documents/" + userID + "/" + identity + "/" + fileName
}
