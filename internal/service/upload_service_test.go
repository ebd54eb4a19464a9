package service

import (
	"bytes"
	"context"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

func fileHeaderFor(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(&buf, writer.Boundary())
	form, err := reader.ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	headers := form.File["file"]
	require.Len(t, headers, 1)
	return headers[0]
}

func TestUploadStorePNG(t *testing.T) {
	dir := t.TempDir()
	svc := NewUploadService(dir, 5, testLogger())

	content := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 64)...)
	name, err := svc.Store(context.Background(), DocumentProfilePhoto, fileHeaderFor(t, "me.png", content))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(name, DocumentProfilePhoto+"-"))
	require.True(t, strings.HasSuffix(name, ".png"))

	stored, err := os.ReadFile(filepath.Join(dir, "photos", name))
	require.NoError(t, err)
	require.Equal(t, content, stored)
}

func TestUploadStorePDF(t *testing.T) {
	dir := t.TempDir()
	svc := NewUploadService(dir, 5, testLogger())

	content := []byte("%PDF-1.4\n%test document\n")
	name, err := svc.Store(context.Background(), DocumentSupporting, fileHeaderFor(t, "doc.pdf", content))
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(name, ".pdf"))

	_, err = os.Stat(filepath.Join(dir, "supporting-files", name))
	require.NoError(t, err)
}

func TestUploadRejectsDisallowedType(t *testing.T) {
	svc := NewUploadService(t.TempDir(), 5, testLogger())

	// A renamed text file must not pass; the content is sniffed.
	header := fileHeaderFor(t, "sneaky.png", []byte("just plain text, not an image"))
	_, err := svc.Store(context.Background(), DocumentIdentityCard, header)
	require.ErrorIs(t, err, ErrUploadTypeNotAllowed)
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	svc := NewUploadService(t.TempDir(), 1, testLogger())

	content := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 2<<20)...)
	header := fileHeaderFor(t, "big.png", content)
	_, err := svc.Store(context.Background(), DocumentProfilePhoto, header)
	require.ErrorIs(t, err, ErrUploadTooLarge)
}

func TestUploadRejectsUnknownKind(t *testing.T) {
	svc := NewUploadService(t.TempDir(), 5, testLogger())

	header := fileHeaderFor(t, "me.png", pngHeader)
	_, err := svc.Store(context.Background(), "mystery", header)
	require.Error(t, err)
}
