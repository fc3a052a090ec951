package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func fileHeader(t *testing.T, field, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if err := req.ParseMultipartForm(10 << 20); err != nil {
		t.Fatalf("parse multipart: %v", err)
	}
	return req.MultipartForm.File[field][0]
}

func TestValidatorAcceptsImage(t *testing.T) {
	v := NewImageValidator(1)
	f, err := v.Open(fileHeader(t, "avatar", "me.png", pngHeader))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	if f.ContentType != "image/png" || f.Kind != KindImage {
		t.Fatalf("unexpected file %+v", f)
	}
	got, err := io.ReadAll(f.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !bytes.Equal(got, pngHeader) {
		t.Fatal("body should be rewound after sniffing")
	}
}

func TestValidatorRejects(t *testing.T) {
	v := NewImageValidator(1)

	cases := map[string]*multipart.FileHeader{
		"extension": fileHeader(t, "avatar", "me.exe", pngHeader),
		"content":   fileHeader(t, "avatar", "me.png", []byte("plain text pretending")),
		"size":      fileHeader(t, "avatar", "big.png", append(append([]byte{}, pngHeader...), make([]byte, 2<<20)...)),
		"missing":   nil,
	}
	for name, fh := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := v.Open(fh); !errors.Is(err, ErrInvalidFile) {
				t.Fatalf("expected invalid file, got %v", err)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	if d := ParseDuration("12.5"); d != 12.5 {
		t.Fatalf("expected 12.5, got %v", d)
	}
	for _, raw := range []string{"", "abc", "-3", "NaN", "Inf", "+Inf", "-Inf", "1e400"} {
		d := ParseDuration(raw)
		if d != 0 {
			t.Fatalf("expected 0 for %q, got %v", raw, d)
		}
		if _, err := json.Marshal(struct{ Duration float64 }{d}); err != nil {
			t.Fatalf("duration for %q must encode: %v", raw, err)
		}
	}
}

func TestVideoValidatorSniffsContainer(t *testing.T) {
	v := NewVideoValidator(1)

	accepted := map[string]struct {
		name    string
		content []byte
	}{
		"video/mp4":       {"clip.mp4", []byte("\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00mp42isom")},
		"video/quicktime": {"clip.mov", []byte("\x00\x00\x00\x14ftypqt  \x00\x00\x00\x00qt  ")},
		"video/webm":      {"clip.webm", []byte("\x1a\x45\xdf\xa3\x9f\x42\x86\x81\x01")},
	}
	for want, tc := range accepted {
		f, err := v.Open(fileHeader(t, "videoFile", tc.name, tc.content))
		if err != nil {
			t.Fatalf("%s: open: %v", tc.name, err)
		}
		f.Close()
		if f.ContentType != want {
			t.Fatalf("%s: content type = %q, want %q", tc.name, f.ContentType, want)
		}
	}

	for name, content := range map[string][]byte{
		"random.mp4": {0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d},
		"short.mov":  {0x00, 0x01},
		"image.mp4":  pngHeader,
	} {
		if _, err := v.Open(fileHeader(t, "videoFile", name, content)); !errors.Is(err, ErrInvalidFile) {
			t.Fatalf("%s: expected invalid file, got %v", name, err)
		}
	}
}

type flakyStorage struct {
	mu       sync.Mutex
	failures int
	err      error
	uploads  int
	destroys int
	bodies   []string
}

func (s *flakyStorage) Upload(_ context.Context, _ string, f File) (Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads++
	b, _ := io.ReadAll(f.Body)
	s.bodies = append(s.bodies, string(b))
	if s.uploads <= s.failures {
		return Asset{}, s.err
	}
	return Asset{URL: "https://cdn.example.com/file"}, nil
}

func (s *flakyStorage) Destroy(context.Context, string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroys++
	if s.destroys <= s.failures {
		return s.err
	}
	return nil
}

func fastPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestRetryRecoversAndRewinds(t *testing.T) {
	inner := &flakyStorage{failures: 2, err: errors.New("503")}
	s := WithRetry(inner, fastPolicy())

	asset, err := s.Upload(context.Background(), "videos", File{Body: strings.NewReader("payload")})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if asset.URL == "" || inner.uploads != 3 {
		t.Fatalf("expected 3 attempts, got %d", inner.uploads)
	}
	for i, b := range inner.bodies {
		if b != "payload" {
			t.Fatalf("attempt %d saw body %q", i+1, b)
		}
	}
}

func TestRetryExhaustion(t *testing.T) {
	inner := &flakyStorage{failures: 10, err: errors.New("503")}
	s := WithRetry(inner, fastPolicy())

	_, err := s.Upload(context.Background(), "videos", File{Body: strings.NewReader("x")})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if inner.uploads != 3 {
		t.Fatalf("expected 3 attempts, got %d", inner.uploads)
	}

	if err := s.Destroy(context.Background(), "https://cdn.example.com/file"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected unavailable on destroy, got %v", err)
	}
}

func TestRetrySkipsInvalidFile(t *testing.T) {
	inner := &flakyStorage{failures: 10, err: ErrInvalidFile}
	s := WithRetry(inner, fastPolicy())

	_, err := s.Upload(context.Background(), "videos", File{Body: strings.NewReader("x")})
	if !errors.Is(err, ErrInvalidFile) || errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected invalid file without retries, got %v", err)
	}
	if inner.uploads != 1 {
		t.Fatalf("expected a single attempt, got %d", inner.uploads)
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	inner := &flakyStorage{failures: 10, err: errors.New("503")}
	s := WithRetry(inner, Policy{MaxAttempts: 5, BaseBackoff: time.Hour, MaxBackoff: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.Upload(ctx, "videos", File{Body: strings.NewReader("x")})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestPolicyBackoffCapped(t *testing.T) {
	p := Policy{BaseBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond}
	for i, w := range want {
		if got := p.backoff(i + 1); got != w {
			t.Fatalf("backoff(%d) = %v, want %v", i+1, got, w)
		}
	}
}

type fakeCloudinary struct {
	uploadParams  uploader.UploadParams
	destroyParams uploader.DestroyParams
	uploadResult  *uploader.UploadResult
}

func (f *fakeCloudinary) Upload(_ context.Context, _ interface{}, p uploader.UploadParams) (*uploader.UploadResult, error) {
	f.uploadParams = p
	return f.uploadResult, nil
}

func (f *fakeCloudinary) Destroy(_ context.Context, p uploader.DestroyParams) (*uploader.DestroyResult, error) {
	f.destroyParams = p
	return &uploader.DestroyResult{Result: "ok"}, nil
}

func TestCloudinaryUpload(t *testing.T) {
	fake := &fakeCloudinary{uploadResult: &uploader.UploadResult{SecureURL: "https://res.cloudinary.com/demo/video/upload/v1/videos/a.mp4"}}
	s := &CloudinaryStorage{api: fake}

	asset, err := s.Upload(context.Background(), "videos", File{Kind: KindVideo, Duration: 42, Body: strings.NewReader("x")})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if asset.URL == "" || asset.Duration != 42 {
		t.Fatalf("unexpected asset %+v", asset)
	}
	if fake.uploadParams.ResourceType != "video" || fake.uploadParams.Folder != "videos" {
		t.Fatalf("unexpected params %+v", fake.uploadParams)
	}

	var measured interface{} = map[string]interface{}{"duration": 12.48, "secure_url": "https://res.cloudinary.com/demo/video/upload/v1/videos/a.mp4"}
	fake.uploadResult = &uploader.UploadResult{SecureURL: "https://res.cloudinary.com/demo/video/upload/v1/videos/a.mp4", Response: &measured}
	asset, err = s.Upload(context.Background(), "videos", File{Kind: KindVideo, Duration: 42, Body: strings.NewReader("x")})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if asset.Duration != 12.48 {
		t.Fatalf("duration = %v, want the host measured 12.48", asset.Duration)
	}

	asset, err = s.Upload(context.Background(), "thumbnails", File{Kind: KindImage, Body: strings.NewReader("x")})
	if err != nil || asset.Duration != 0 {
		t.Fatalf("image upload: %+v %v", asset, err)
	}

	fake.uploadResult = &uploader.UploadResult{Error: api.ErrorResp{Message: "Invalid image file"}}
	if _, err := s.Upload(context.Background(), "images", File{Kind: KindImage}); err == nil {
		t.Fatal("expected error from provider message")
	}
}

func TestCloudinaryDestroy(t *testing.T) {
	fake := &fakeCloudinary{}
	s := &CloudinaryStorage{api: fake}

	if err := s.Destroy(context.Background(), "https://res.cloudinary.com/demo/video/upload/v1712345/videotube/videos/clip.mp4"); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if fake.destroyParams.PublicID != "videotube/videos/clip" || fake.destroyParams.ResourceType != "video" {
		t.Fatalf("unexpected destroy params %+v", fake.destroyParams)
	}

	if err := s.Destroy(context.Background(), "not a url"); !errors.Is(err, ErrInvalidFile) {
		t.Fatalf("expected invalid file for bad url, got %v", err)
	}
}

func TestCloudinaryPublicIDWithoutVersion(t *testing.T) {
	resType, id, err := cloudinaryPublicID("https://res.cloudinary.com/demo/image/upload/avatar.png")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if resType != "image" || id != "avatar" {
		t.Fatalf("unexpected %s %s", resType, id)
	}
}

func TestGCSObjectName(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "https://storage.googleapis.com/bucket/images/a.png", want: "images/a.png"},
		{raw: "https://bucket.storage.googleapis.com/images/a.png", want: "images/a.png"},
		{raw: "https://storage.googleapis.com/other/images/a.png", wantErr: true},
		{raw: "https://example.com/a.png", wantErr: true},
	}
	for _, tt := range tests {
		got, err := gcsObjectName("bucket", tt.raw)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidFile) {
				t.Fatalf("%s: expected invalid file, got %v", tt.raw, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("%s: got %q, %v", tt.raw, got, err)
		}
	}
}

type fakeObjectAPI struct {
	put    *s3.PutObjectInput
	delKey string
}

func (f *fakeObjectAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.put = in
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjectAPI) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.delKey = *in.Key
	return &s3.DeleteObjectOutput{}, nil
}

func TestR2UploadAndDestroyRoundTrip(t *testing.T) {
	fake := &fakeObjectAPI{}
	s := &R2Storage{s3: fake, bucket: "media", domain: "https://files.example.com"}

	asset, err := s.Upload(context.Background(), "thumbnails", File{Name: "My Thumb.PNG", ContentType: "image/png", Size: 3, Body: strings.NewReader("png")})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	key := *fake.put.Key
	if !strings.HasPrefix(key, "thumbnails/") || !strings.HasSuffix(key, ".png") || !strings.Contains(key, "my-thumb") {
		t.Fatalf("unexpected key %q", key)
	}
	if asset.URL != "https://files.example.com/media/"+key {
		t.Fatalf("unexpected url %q", asset.URL)
	}

	if err := s.Destroy(context.Background(), asset.URL); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if fake.delKey != key {
		t.Fatalf("deleted %q, want %q", fake.delKey, key)
	}
}
