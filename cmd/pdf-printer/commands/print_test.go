package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaiazov/PrintService/internal/domain"
)

func TestParseCookies(t *testing.T) {
	cookies, err := parseCookies([]string{"session=abc", " csrf =x=y", "empty="})
	require.NoError(t, err)
	assert.Equal(t, []domain.Cookie{
		{Key: "session", Value: "abc"},
		{Key: "csrf", Value: "x=y"},
		{Key: "empty", Value: ""},
	}, cookies)

	_, err = parseCookies([]string{"novalue"})
	assert.Error(t, err)

	_, err = parseCookies([]string{"=value"})
	assert.Error(t, err)
}

func TestIsURL(t *testing.T) {
	assert.True(t, isURL("https://example.com/a.pdf"))
	assert.True(t, isURL("http://localhost:8080/a.pdf"))
	assert.False(t, isURL("./a.pdf"))
	assert.False(t, isURL("ftp://example.com/a.pdf"))
}
