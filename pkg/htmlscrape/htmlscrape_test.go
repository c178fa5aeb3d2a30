package htmlscrape

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `
<html><body>
<a href="/full/1.jpg"><img src="/thumb/1.jpg"></a>
<a href="/full/2.jpg"><img src="/thumb/2.jpg"></a>
<img src="/standalone/3.jpg">
<a href="/not-an-image-link">text only</a>
</body></html>
`

func TestFindImageURLsSeparatesLinkedAndUnlinked(t *testing.T) {
	got, err := FindImageURLs(strings.NewReader(samplePage), "https://example.org/gallery/page")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"https://example.org/full/1.jpg",
		"https://example.org/full/2.jpg",
	}, got.Linked)

	assert.Equal(t, []string{"https://example.org/standalone/3.jpg"}, got.Unlinked)
}

func TestFindImageURLsEmptyPage(t *testing.T) {
	got, err := FindImageURLs(strings.NewReader("<html></html>"), "https://example.org/")
	require.NoError(t, err)
	assert.Empty(t, got.Linked)
	assert.Empty(t, got.Unlinked)
}
