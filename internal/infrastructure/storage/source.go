// Package storage provides the batch inbox backends: a local directory tree
// and an S3-compatible bucket.
package storage

import (
	"path"
	"strings"
	"time"
)

// supportedExtensions are the inbox files the batch processor understands
var supportedExtensions = map[string]struct{}{
	".json": {},
	".pdf":  {},
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".webp": {},
}

// IsSupported reports whether name is a record or scan the batch can ingest
func IsSupported(name string) bool {
	_, ok := supportedExtensions[strings.ToLower(path.Ext(name))]
	return ok
}

// ContentType returns the MIME type for a supported scan
func ContentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return "application/json"
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// stampedName inserts a UTC timestamp before the extension so a moved file
// never overwrites an earlier one with the same name
func stampedName(name string, now time.Time) string {
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext) + "-" + now.UTC().Format("20060102T150405.000000000") + ext
}
