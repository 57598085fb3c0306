// Package fetch acquires raw document bytes from URLs, local paths, or uploads.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hyperjump/kotae/internal/fingerprint"
	"github.com/hyperjump/kotae/internal/models"
	"go.uber.org/zap"
)

// DownloadError reports a document that could not be acquired: unreachable URL,
// oversize payload, or an unsupported format.
type DownloadError struct {
	Source string
	Status int // HTTP status when applicable, 0 otherwise
	Reason string
}

func (e *DownloadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("download %s: HTTP %d: %s", e.Source, e.Status, e.Reason)
	}
	return fmt.Sprintf("download %s: %s", e.Source, e.Reason)
}

// supportedFormats maps normalized format names to true. Matches the extractor's dispatch.
var supportedFormats = map[string]bool{
	"pdf": true, "docx": true, "odt": true, "rtf": true,
	"xlsx": true, "html": true, "txt": true, "md": true,
}

// Fetcher downloads documents over HTTP or wraps local files and uploads.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
	logger   *zap.Logger
}

// NewFetcher creates a fetcher with the given size limit in bytes.
func NewFetcher(maxBytes int64, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client:   &http.Client{},
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Fetch acquires the document at source. A source that is an existing local file
// is read directly; anything else is treated as a URL. The returned Document is
// immutable from the caller's point of view.
func (f *Fetcher) Fetch(ctx context.Context, source string) (*models.Document, error) {
	if info, err := os.Stat(source); err == nil && info.Mode().IsRegular() {
		return f.fetchFile(source, info.Size())
	}
	return f.fetchURL(ctx, source)
}

// FromUpload wraps raw uploaded bytes as a Document without any network access.
func (f *Fetcher) FromUpload(upload models.Upload) (*models.Document, error) {
	if int64(len(upload.Data)) > f.maxBytes {
		return nil, &DownloadError{Source: upload.Filename, Reason: fmt.Sprintf("document too large: %d bytes", len(upload.Data))}
	}
	format := detectFormat(upload.Filename, "")
	if !supportedFormats[format] {
		return nil, &DownloadError{Source: upload.Filename, Reason: fmt.Sprintf("unsupported file format: %s", format)}
	}
	return &models.Document{
		ID:       fingerprint.DocID("upload:" + upload.Filename),
		Source:   "upload:" + upload.Filename,
		Filename: upload.Filename,
		Format:   format,
		Size:     int64(len(upload.Data)),
		Raw:      upload.Data,
	}, nil
}

func (f *Fetcher) fetchFile(path string, size int64) (*models.Document, error) {
	if size > f.maxBytes {
		return nil, &DownloadError{Source: path, Reason: fmt.Sprintf("document too large: %d bytes", size)}
	}
	format := detectFormat(path, "")
	if !supportedFormats[format] {
		return nil, &DownloadError{Source: path, Reason: fmt.Sprintf("unsupported file format: %s", format)}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DownloadError{Source: path, Reason: fmt.Sprintf("read file: %v", err)}
	}
	return &models.Document{
		ID:       fingerprint.DocID(path),
		Source:   path,
		Filename: filepath.Base(path),
		Format:   format,
		Size:     int64(len(data)),
		Raw:      data,
	}, nil
}

func (f *Fetcher) fetchURL(ctx context.Context, rawURL string) (*models.Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, &DownloadError{Source: rawURL, Reason: "not a valid http(s) URL"}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &DownloadError{Source: rawURL, Reason: err.Error()}
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &DownloadError{Source: rawURL, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &DownloadError{Source: rawURL, Status: resp.StatusCode, Reason: resp.Status}
	}
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, parseErr := strconv.ParseInt(cl, 10, 64); parseErr == nil && n > f.maxBytes {
			return nil, &DownloadError{Source: rawURL, Reason: fmt.Sprintf("document too large: %d bytes", n)}
		}
	}
	// Read one byte past the limit so truncated-at-limit payloads are rejected, not silently cut.
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, &DownloadError{Source: rawURL, Reason: fmt.Sprintf("read body: %v", err)}
	}
	if int64(len(data)) > f.maxBytes {
		return nil, &DownloadError{Source: rawURL, Reason: fmt.Sprintf("document too large: over %d bytes", f.maxBytes)}
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	filename := filenameFromURL(u, contentType)
	format := detectFormat(filename, contentType)
	if !supportedFormats[format] {
		return nil, &DownloadError{Source: rawURL, Reason: fmt.Sprintf("unsupported content type: %s", contentType)}
	}
	f.logger.Debug("document downloaded",
		zap.String("source", rawURL),
		zap.String("format", format),
		zap.Int("size_bytes", len(data)),
	)
	return &models.Document{
		ID:       fingerprint.DocID(rawURL),
		Source:   rawURL,
		Filename: filename,
		Format:   format,
		Size:     int64(len(data)),
		Raw:      data,
	}, nil
}

// filenameFromURL takes the URL path basename, or derives a name from the content type
// when the path has no extension.
func filenameFromURL(u *url.URL, contentType string) string {
	base := filepath.Base(u.Path)
	if filepath.Ext(base) != "" {
		return base
	}
	switch {
	case strings.Contains(contentType, "pdf"):
		return "document.pdf"
	case strings.Contains(contentType, "word") || strings.Contains(contentType, "docx"):
		return "document.docx"
	case strings.Contains(contentType, "html"):
		return "document.html"
	default:
		return "document.txt"
	}
}

// detectFormat resolves the document format from the filename extension first,
// falling back to the content type.
func detectFormat(filename, contentType string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if supportedFormats[ext] {
		return ext
	}
	switch {
	case strings.Contains(contentType, "pdf"):
		return "pdf"
	case strings.Contains(contentType, "word") || strings.Contains(contentType, "docx"):
		return "docx"
	case strings.Contains(contentType, "html"):
		return "html"
	case strings.Contains(contentType, "text"), contentType == "":
		return "txt"
	default:
		return ext
	}
}
