// Package media uploads and destroys binary assets on an external host.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/princinho/videotube/utils"
)

type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

var (
	// ErrInvalidFile marks a rejected upload that retrying cannot fix.
	ErrInvalidFile = errors.New("invalid media file")
	// ErrUnavailable means the media host kept failing after every retry.
	ErrUnavailable = errors.New("media host unavailable")
)

// File is an upload ready to be sent. Body is rewound between retries.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Kind        Kind
	// Duration in seconds as reported by the client, used when the host does
	// not measure it.
	Duration float64
	Body     io.ReadSeeker
}

func (f File) Close() error {
	if c, ok := f.Body.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Asset is an uploaded file.
type Asset struct {
	URL      string
	Duration float64
}

// Storage is the media host. Destroy takes the URL Upload returned.
type Storage interface {
	Upload(ctx context.Context, folder string, f File) (Asset, error)
	Destroy(ctx context.Context, url string) error
}

// objectName builds folder/<unix>-<slug>-<uuid><ext> for backends that key
// objects by path.
func objectName(folder string, f File) string {
	ext := strings.ToLower(filepath.Ext(f.Name))
	if ext == "" {
		ext = ".bin"
	}
	base := utils.GenerateSlug(strings.TrimSuffix(filepath.Base(f.Name), filepath.Ext(f.Name)))
	if base == "" {
		base = string(f.Kind)
	}
	name := fmt.Sprintf("%d-%s-%s%s", time.Now().UTC().Unix(), base, uuid.NewString(), ext)
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return name
	}
	return folder + "/" + name
}
