package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Upload validation errors.
var (
	ErrUploadTooLarge       = errors.New("file exceeds the 5MB limit")
	ErrUploadTypeNotAllowed = errors.New("only JPEG, PNG and PDF files are allowed")
)

// Document kinds accepted as uploads. Each kind lands in its own
// subdirectory of the upload root.
const (
	DocumentIdentityCard = "identity-card"
	DocumentSupporting   = "supporting-file"
	DocumentProfilePhoto = "profile-photo"
	DocumentEventPoster  = "event-poster"
)

var documentDirs = map[string]string{
	DocumentIdentityCard: "identity-cards",
	DocumentSupporting:   "supporting-files",
	DocumentProfilePhoto: "photos",
	DocumentEventPoster:  "event-posters",
}

var allowedMIMETypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"application/pdf": {},
}

// UploadService validates and stores registration documents on local disk,
// returning the stored filename kept on the user record.
type UploadService interface {
	Store(ctx context.Context, kind string, file *multipart.FileHeader) (string, error)
}

type uploadService struct {
	rootDir string
	maxSize int64
	logger  zerolog.Logger
	tracer  trace.Tracer
}

// NewUploadService constructs the disk-backed upload service.
func NewUploadService(rootDir string, maxSizeMB int, logger zerolog.Logger) UploadService {
	if maxSizeMB <= 0 {
		maxSizeMB = 5
	}
	return &uploadService{
		rootDir: rootDir,
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		logger:  logger.With().Str("component", "upload_service").Logger(),
		tracer:  otel.Tracer("github.com/kopma-dev/kopma-api/internal/service/upload"),
	}
}

func (s *uploadService) Store(ctx context.Context, kind string, file *multipart.FileHeader) (string, error) {
	_, span := s.tracer.Start(ctx, "upload.store")
	defer span.End()

	dir, ok := documentDirs[kind]
	if !ok {
		err := fmt.Errorf("unknown document kind %q", kind)
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return "", err
	}

	span.SetAttributes(
		attribute.String("upload.kind", kind),
		attribute.Int64("upload.max_bytes", s.maxSize),
	)

	if file == nil {
		err := errors.New("file is required")
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return "", err
	}

	span.SetAttributes(
		attribute.String("upload.original_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("upload.request_size", file.Size),
	)

	if file.Size > s.maxSize {
		span.RecordError(ErrUploadTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return "", ErrUploadTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return "", err
	}
	defer handle.Close()

	content, err := io.ReadAll(io.LimitReader(handle, s.maxSize+1))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return "", err
	}
	if int64(len(content)) > s.maxSize {
		span.RecordError(ErrUploadTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return "", ErrUploadTooLarge
	}

	// Sniff the real content type; the client-supplied header and extension
	// are not trusted.
	detected := mimetype.Detect(content)
	if _, ok := allowedMIMETypes[detected.String()]; !ok {
		span.RecordError(ErrUploadTypeNotAllowed)
		span.SetStatus(codes.Error, "type not allowed")
		return "", ErrUploadTypeNotAllowed
	}

	targetDir := filepath.Join(s.rootDir, dir)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "mkdir failed")
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	name := fmt.Sprintf("%s-%d-%s%s", kind, time.Now().UnixNano(), uuid.NewString(), detected.Extension())
	if err := os.WriteFile(filepath.Join(targetDir, name), content, 0o644); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		return "", fmt.Errorf("write upload: %w", err)
	}

	s.logger.Info().
		Str("kind", kind).
		Str("stored_name", name).
		Int("bytes", len(content)).
		Msg("document stored")

	return name, nil
}
