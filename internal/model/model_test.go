package model

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseImageRef(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantErr  error
		remote   bool
		value    string
		baseName string
	}{
		{name: "plain key", raw: "hazy_7.jpg", value: "hazy_7.jpg", baseName: "hazy_7.jpg"},
		{name: "sample path", raw: "/images/hazy_7.jpg", value: "hazy_7.jpg", baseName: "hazy_7.jpg"},
		{name: "leading slash", raw: "/1700000000000_cat.png", value: "1700000000000_cat.png", baseName: "1700000000000_cat.png"},
		{name: "nested key", raw: "uploads/a.jpg", value: "uploads/a.jpg", baseName: "a.jpg"},
		{name: "remote url", raw: "https://example.com/x.jpg", remote: true, value: "https://example.com/x.jpg", baseName: "x.jpg"},
		{name: "remote url upper scheme", raw: "HTTP://example.com/a/b.png", remote: true, value: "HTTP://example.com/a/b.png", baseName: "b.png"},
		{name: "empty", raw: "   ", wantErr: ErrMissingInput},
		{name: "only prefix", raw: "/images/", wantErr: ErrInvalidReference},
		{name: "dot dot", raw: "../secret", wantErr: ErrInvalidReference},
		{name: "url without host", raw: "http://", wantErr: ErrInvalidReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseImageRef(tt.raw, SamplePrefix)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.remote, ref.IsRemote())
			require.Equal(t, tt.value, ref.Value())
			require.Equal(t, tt.baseName, ref.BaseName())
		})
	}
}

func TestRemoteRef_BaseNameEmptyPath(t *testing.T) {
	require.Equal(t, "", RemoteRef("https://example.com/").BaseName())
	require.Equal(t, "", RemoteRef("https://example.com").BaseName())
}

func TestErrorClass(t *testing.T) {
	require.Equal(t, "success", ErrorClass(nil))
	require.Equal(t, "object_not_found", ErrorClass(fmt.Errorf("%w: %q", ErrObjectNotFound, "k")))
	require.Equal(t, "fetch_failed", ErrorClass(fmt.Errorf("wrap: %w", ErrFetchFailed)))
	require.Equal(t, "upload_failed", ErrorClass(ErrObjectExists))
	require.Equal(t, "unexpected", ErrorClass(fmt.Errorf("boom")))
}

func TestSampleImages(t *testing.T) {
	s := SampleImages(50)
	require.Len(t, s, 50)
	require.Equal(t, "/images/hazy_1.jpg", s[0])
	require.Equal(t, "/images/hazy_50.jpg", s[49])
	require.Empty(t, SampleImages(0))
}

func TestContentTypeByName(t *testing.T) {
	require.Equal(t, JPEG, ContentTypeByName("a.JPG"))
	require.Equal(t, PNG, ContentTypeByName("a.png"))
	require.Equal(t, "application/octet-stream", ContentTypeByName("a.txt"))
}
