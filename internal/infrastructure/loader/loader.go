package loader

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/kirillkom/multi-strategy-rag/internal/core/domain"
	"github.com/kirillkom/multi-strategy-rag/internal/core/ports"
)

const defaultMaxBytes = 32 << 20

// FileOpener reads a stored file by key.
type FileOpener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Extractors maps a document kind to its text extractor.
type Extractors struct {
	Text        ports.TextExtractor
	HTML        ports.TextExtractor
	PDF         ports.TextExtractor
	Spreadsheet ports.TextExtractor
}

// Loader resolves a source location: http(s) URLs are fetched, anything else
// is read from file storage. The extractor is picked by content type, then by
// extension.
type Loader struct {
	files      FileOpener
	extractors Extractors
	httpClient *http.Client
	maxBytes   int64
}

func New(files FileOpener, extractors Extractors) *Loader {
	return &Loader{
		files:      files,
		extractors: extractors,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		maxBytes:   defaultMaxBytes,
	}
}

func (l *Loader) Load(ctx context.Context, location string) ([]domain.LoadedDocument, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load source", fmt.Errorf("location is required"))
	}

	var (
		data        []byte
		contentType string
		name        string
		err         error
	)
	if u, parseErr := url.Parse(location); parseErr == nil && (u.Scheme == "http" || u.Scheme == "https") {
		data, contentType, err = l.fetch(ctx, location)
		name = path.Base(u.Path)
	} else {
		data, err = l.readFile(ctx, location)
		name = filepath.Base(location)
	}
	if err != nil {
		return nil, err
	}

	extractor, err := l.pick(contentType, name)
	if err != nil {
		return nil, err
	}
	text, err := extractor.Extract(ctx, name, data)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract text", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	return []domain.LoadedDocument{{
		Source: location,
		Title:  titleOf(name, location),
		Text:   text,
	}}, nil
}

func (l *Loader) fetch(ctx context.Context, location string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create fetch request: %w", err)
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, "", domain.WrapError(domain.ErrTemporary, "fetch source", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, "", domain.WrapError(domain.ErrSourceNotFound, "fetch source", fmt.Errorf("status %s", resp.Status))
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, "", domain.WrapError(domain.ErrTemporary, "fetch source", fmt.Errorf("status %s", resp.Status))
	case resp.StatusCode >= 300:
		return nil, "", fmt.Errorf("fetch source: status %s", resp.Status)
	}

	data, err := readLimited(resp.Body, l.maxBytes)
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (l *Loader) readFile(ctx context.Context, location string) ([]byte, error) {
	if l.files == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load source", fmt.Errorf("file sources are not enabled"))
	}
	rc, err := l.files.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return readLimited(rc, l.maxBytes)
}

func (l *Loader) pick(contentType, name string) (ports.TextExtractor, error) {
	kind := kindFromContentType(contentType)
	if kind == "" {
		kind = kindFromExtension(name)
	}

	var extractor ports.TextExtractor
	switch kind {
	case "html":
		extractor = l.extractors.HTML
	case "pdf":
		extractor = l.extractors.PDF
	case "xlsx":
		extractor = l.extractors.Spreadsheet
	default:
		extractor = l.extractors.Text
	}
	if extractor == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load source", fmt.Errorf("no extractor for %s", name))
	}
	return extractor, nil
}

func kindFromContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	switch mediaType {
	case "text/html", "application/xhtml+xml":
		return "html"
	case "application/pdf":
		return "pdf"
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return "xlsx"
	case "text/plain", "text/markdown", "text/csv", "application/json":
		return "text"
	}
	return ""
}

func kindFromExtension(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm":
		return "html"
	case ".pdf":
		return "pdf"
	case ".xlsx", ".xlsm":
		return "xlsx"
	}
	return "text"
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read source", fmt.Errorf("source exceeds %d bytes", limit))
	}
	return data, nil
}

func titleOf(name, location string) string {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == "/" {
		return location
	}
	return name
}
