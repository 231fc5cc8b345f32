package urls_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfgate/pagecheck/internal/urls"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"https://example.com", "https://example.com"},
		{"  https://example.com/page  ", "https://example.com/page"},
		{"example.com", "https://example.com"},
		{"http://example.com", "http://example.com"},
		{"", ""},
		{"# a comment", ""},
		{"nodots", ""},
		{"https://", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, urls.Validate(c.in), "input %q", c.in)
	}
}

func TestLoadFromArgsDedupes(t *testing.T) {
	got, err := urls.Load(context.Background(), urls.Sources{
		Args: []string{"example.com", "https://example.com", "https://other.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com", "https://other.com"}, got)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(path, []byte("# header\nexample.com\n\nbad url here\nhttps://two.example.com\n"), 0o644))

	got, err := urls.Load(context.Background(), urls.Sources{File: path})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com", "https://two.example.com"}, got)
}

func TestLoadFromStdin(t *testing.T) {
	got, err := urls.Load(context.Background(), urls.Sources{
		Stdin: strings.NewReader("example.com\nexample.org\n"),
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestLoadArgsBeatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(path, []byte("https://fromfile.example.com\n"), 0o644))

	got, err := urls.Load(context.Background(), urls.Sources{
		Args: []string{"https://fromargs.example.com"},
		File: path,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://fromargs.example.com"}, got)
}

func TestLoadEmptyIsFatal(t *testing.T) {
	_, err := urls.Load(context.Background(), urls.Sources{})
	require.Error(t, err)

	_, err = urls.Load(context.Background(), urls.Sources{Args: []string{"###", ""}})
	require.Error(t, err)
}

func TestLoadSitemapAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sitemap.xml")
	require.NoError(t, os.WriteFile(path, []byte(`<urlset><url><loc>https://example.com/from-sitemap</loc></url></urlset>`), 0o644))

	got, err := urls.Load(context.Background(), urls.Sources{
		Args:    []string{"https://example.com"},
		Sitemap: path,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com", "https://example.com/from-sitemap"}, got)
}

func TestLooksLikeSitemap(t *testing.T) {
	assert.True(t, urls.LooksLikeSitemap("https://example.com/sitemap.xml"))
	assert.True(t, urls.LooksLikeSitemap("https://example.com/sitemap_index.xml"))
	assert.True(t, urls.LooksLikeSitemap("pages.xml"))
	assert.False(t, urls.LooksLikeSitemap("https://example.com/"))

	path := filepath.Join(t.TempDir(), "discovered")
	require.NoError(t, os.WriteFile(path, []byte("<?xml version=\"1.0\"?><urlset></urlset>"), 0o644))
	assert.True(t, urls.LooksLikeSitemap(path))
}
