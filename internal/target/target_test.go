package target

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidators(t *testing.T) {
	tests := []struct {
		in     string
		isURL  bool
		isHost bool
	}{
		{"example.com", false, true},
		{"sub.example.co.uk", false, true},
		{"http://example.com/path", true, false},
		{"https://example.com", true, false},
		{"", false, false},
		{"not a url", false, false},
		{"-example.com", false, false},
		{"example.c0m", false, false},
		{"ftp://example.com", false, false},
		{"https://example.com/a b", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.isURL, IsURL(tt.in), "IsURL")
			assert.Equal(t, tt.isHost, IsHost(tt.in), "IsHost")
		})
	}
}

func TestValidate_WrapsSentinels(t *testing.T) {
	assert.NoError(t, Validate(Host, "example.com"))
	assert.NoError(t, Validate(URL, "http://example.com/path"))

	err := Validate(Host, "")
	assert.True(t, errors.Is(err, ErrInvalidHost))

	err = Validate(URL, "not a url")
	assert.True(t, errors.Is(err, ErrInvalidURL))
}

func TestExtractURLs(t *testing.T) {
	in := "Progress: 50%\nhttp://x.com/a\nDone\nhttp://x.com/b\n"
	assert.Equal(t, []string{"http://x.com/a", "http://x.com/b"}, ExtractURLs(in))
}

func TestExtractURLs_KeepsDuplicatesAndOrder(t *testing.T) {
	in := "  _|. _ _  _  _  _ _|_    v0.4.3\n" +
		"[12:00:01] 200 -  1KB  - https://x.com/admin\n" +
		"https://x.com/admin\n" +
		"Task Completed\n" +
		"http://x.com/login?next=/\n"
	assert.Equal(t, []string{
		"https://x.com/admin",
		"https://x.com/admin",
		"http://x.com/login?next=/",
	}, ExtractURLs(in))
}

func TestExtractURLs_NoMatches(t *testing.T) {
	assert.Empty(t, ExtractURLs("Task Completed\nhttp:// nothing\n"))
	assert.Empty(t, ExtractURLs(""))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "url", URL.String())
	assert.Equal(t, "host", Host.String())
}
