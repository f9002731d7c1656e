// Package model provides data-structs for internal app-usage
package model

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/disintegration/imaging"
)

type RefKind int

const (
	RefLocal RefKind = iota
	RefRemote
)

// ImageRef - указатель на картинку: ключ в бакете или внешний URL
type ImageRef struct {
	kind  RefKind
	value string
}

func LocalRef(key string) ImageRef {
	return ImageRef{kind: RefLocal, value: key}
}

func RemoteRef(rawURL string) ImageRef {
	return ImageRef{kind: RefRemote, value: rawURL}
}

func (r ImageRef) Kind() RefKind { return r.kind }

func (r ImageRef) IsRemote() bool { return r.kind == RefRemote }

// Value returns the storage key for local references and the URL for remote ones.
func (r ImageRef) Value() string { return r.value }

// BaseName is the last path element of the reference, used to build the derived key.
func (r ImageRef) BaseName() string {
	if r.kind == RefLocal {
		return path.Base(r.value)
	}
	u, err := url.Parse(r.value)
	if err != nil || u.Path == "" || u.Path == "/" {
		return ""
	}
	return path.Base(u.Path)
}

func (r ImageRef) String() string {
	if r.kind == RefRemote {
		return "remote(" + r.value + ")"
	}
	return "local(" + r.value + ")"
}

// ParseImageRef turns the raw imagePath of a request into a reference. samplePrefix is the
// public path the presentation layer serves samples from (e.g. "/images/").
func ParseImageRef(raw, samplePrefix string) (ImageRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ImageRef{}, ErrMissingInput
	}

	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return ImageRef{}, fmt.Errorf("%w: %q", ErrInvalidReference, raw)
		}
		return RemoteRef(raw), nil
	}

	key := raw
	if samplePrefix != "" {
		key = strings.TrimPrefix(key, samplePrefix)
	}
	key = strings.TrimLeft(key, "/")
	if key == "" || strings.Contains(key, "..") {
		return ImageRef{}, fmt.Errorf("%w: %q", ErrInvalidReference, raw)
	}

	return LocalRef(key), nil
}

//---------------------

// Result - итог одной обработки, в том же виде уходит клиенту
type Result struct {
	Success           bool   `json:"success"`
	Message           string `json:"message,omitempty"`
	OriginalPath      string `json:"originalPath,omitempty"`
	ProcessedPath     string `json:"processedPath,omitempty"`
	ProcessedImageURL string `json:"processedImageUrl,omitempty"`
	ImageURL          string `json:"imageUrl,omitempty"`
	Error             string `json:"error,omitempty"`
}

func FailedResult(msg string) *Result {
	return &Result{Success: false, Error: msg}
}

type DehazeRequest struct {
	ImagePath string `json:"imagePath"`
}

// ProcessedEvent is published after a derived object has been written.
type ProcessedEvent struct {
	OriginalPath      string `json:"originalPath"`
	ProcessedPath     string `json:"processedPath"`
	ProcessedImageURL string `json:"processedImageUrl"`
	ProcessedAt       string `json:"processedAt"`
}

//---------------------

type UploadOptions struct {
	ContentType string
	Upsert      bool
}

type BucketOptions struct {
	Public bool
}

// ------------------

var (
	ErrMissingInput       error = errors.New("missing input: imagePath is required")
	ErrInvalidReference   error = errors.New("invalid image reference")
	ErrStorageUnavailable error = errors.New("storage unavailable")
	ErrObjectNotFound     error = errors.New("object not found")
	ErrObjectExists       error = errors.New("object already exists")
	ErrFetchFailed        error = errors.New("fetch failed")
	ErrUploadFailed       error = errors.New("upload failed")
	ErrURLUnavailable     error = errors.New("public url unavailable")
	ErrUnexpected         error = errors.New("unexpected error")

	// бакет пропал уже после провижининга - класс тот же, что у недоступного хранилища
	ErrBucketMissing = fmt.Errorf("%w: bucket does not exist", ErrStorageUnavailable)
)

// ErrorClass returns a short label of the taxonomy class err belongs to.
func ErrorClass(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrMissingInput):
		return "missing_input"
	case errors.Is(err, ErrInvalidReference):
		return "invalid_reference"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, ErrObjectNotFound):
		return "object_not_found"
	case errors.Is(err, ErrFetchFailed):
		return "fetch_failed"
	case errors.Is(err, ErrUploadFailed), errors.Is(err, ErrObjectExists):
		return "upload_failed"
	case errors.Is(err, ErrURLUnavailable):
		return "url_unavailable"
	default:
		return "unexpected"
	}
}

//--------------------

const (
	JPEG = "image/jpeg"
	PNG  = "image/png"
	GIF  = "image/gif"
)

var GetImageFileExt = map[string]string{
	JPEG: ".jpg",
	PNG:  ".png",
	GIF:  ".gif",
}

var GetCType = map[imaging.Format]string{
	imaging.JPEG: JPEG,
	imaging.GIF:  GIF,
	imaging.PNG:  PNG,
}

// ContentTypeByName guesses content type from a file name, falling back to octet-stream.
func ContentTypeByName(name string) string {
	f, err := imaging.FormatFromFilename(name)
	if err != nil {
		return "application/octet-stream"
	}
	if ct, ok := GetCType[f]; ok {
		return ct
	}
	return "application/octet-stream"
}

//--------------------

const (
	SamplePrefix     = "/images/"
	SampleNamePrefix = "hazy_"
)

// SampleImages enumerates the well-known sample paths hazy_1.jpg ... hazy_n.jpg.
func SampleImages(n int) []string {
	if n <= 0 {
		return []string{}
	}
	res := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		res = append(res, fmt.Sprintf("%s%s%d.jpg", SamplePrefix, SampleNamePrefix, i))
	}
	return res
}
