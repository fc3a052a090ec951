package media

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
)

type Validator struct {
	kind        Kind
	allowedExt  map[string]bool
	allowedMime map[string]bool
	maxSize     int64
}

func NewImageValidator(maxSizeMB int) *Validator {
	return newValidator(KindImage, maxSizeMB,
		[]string{".jpg", ".jpeg", ".png", ".webp", ".gif"},
		[]string{"image/jpeg", "image/png", "image/webp", "image/gif"},
	)
}

func NewVideoValidator(maxSizeMB int) *Validator {
	return newValidator(KindVideo, maxSizeMB,
		[]string{".mp4", ".webm", ".mov", ".mkv", ".avi"},
		[]string{"video/mp4", "video/webm", "video/quicktime", "video/x-matroska", "video/avi", "video/x-msvideo"},
	)
}

func newValidator(kind Kind, maxSizeMB int, exts, mimes []string) *Validator {
	if maxSizeMB <= 0 {
		maxSizeMB = 5
	}
	v := &Validator{
		kind:        kind,
		allowedExt:  make(map[string]bool, len(exts)),
		allowedMime: make(map[string]bool, len(mimes)),
		maxSize:     int64(maxSizeMB) << 20,
	}
	for _, e := range exts {
		v.allowedExt[e] = true
	}
	for _, m := range mimes {
		v.allowedMime[m] = true
	}
	return v
}

// Open validates the uploaded part and returns it ready for Storage.Upload.
// The caller closes the returned File.
func (v *Validator) Open(fileHeader *multipart.FileHeader) (File, error) {
	if fileHeader == nil {
		return File{}, fmt.Errorf("%w: %s file is missing", ErrInvalidFile, v.kind)
	}
	if fileHeader.Size > v.maxSize {
		return File{}, fmt.Errorf("%w: file too large (max %d MB)", ErrInvalidFile, v.maxSize>>20)
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !v.allowedExt[ext] {
		return File{}, fmt.Errorf("%w: invalid file extension %q", ErrInvalidFile, ext)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return File{}, fmt.Errorf("open upload: %w", err)
	}

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		_ = file.Close()
		return File{}, fmt.Errorf("%w: failed to read file header", ErrInvalidFile)
	}
	if _, err = file.Seek(0, io.SeekStart); err != nil {
		_ = file.Close()
		return File{}, fmt.Errorf("failed to reset file reader: %w", err)
	}

	detected := strings.ToLower(http.DetectContentType(buffer[:n]))
	if i := strings.Index(detected, ";"); i >= 0 {
		detected = strings.TrimSpace(detected[:i])
	}
	if v.kind == KindVideo && detected == "application/octet-stream" {
		detected = sniffISOMedia(buffer[:n])
	}
	if !v.allowedMime[detected] {
		_ = file.Close()
		return File{}, fmt.Errorf("%w: invalid file type %s", ErrInvalidFile, detected)
	}

	return File{
		Name:        fileHeader.Filename,
		ContentType: detected,
		Size:        fileHeader.Size,
		Kind:        v.kind,
		Body:        file,
	}, nil
}

// sniffISOMedia recognises ISO base media files that http.DetectContentType
// leaves as octet-stream: QuickTime and mp4 variants whose major brand does
// not start with "mp4".
func sniffISOMedia(header []byte) string {
	if len(header) < 12 {
		return "application/octet-stream"
	}
	switch {
	case bytes.Equal(header[4:8], []byte("ftyp")):
		if bytes.Equal(header[8:12], []byte("qt  ")) {
			return "video/quicktime"
		}
		return "video/mp4"
	case bytes.Equal(header[4:8], []byte("moov")), bytes.Equal(header[4:8], []byte("mdat")),
		bytes.Equal(header[4:8], []byte("wide")):
		// pre-ftyp QuickTime movies start with one of these atoms.
		return "video/quicktime"
	}
	return "application/octet-stream"
}

// ParseDuration reads a client supplied duration in seconds. Values that are
// not finite non-negative numbers yield zero.
func ParseDuration(raw string) float64 {
	d, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || !validDuration(d) {
		return 0
	}
	return d
}

// validDuration rejects NaN and infinities, which JSON cannot encode.
func validDuration(d float64) bool {
	return d >= 0 && !math.IsNaN(d) && !math.IsInf(d, 0)
}
