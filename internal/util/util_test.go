package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescriptionTextHTML(t *testing.T) {
	in := `<p>Walkthrough of <b>12 Oak St</b></p><ul><li>Bring keys</li><li>Check&nbsp;garage</li></ul>` +
		`<br>Listing: <a href="https://www.google.com/url?q=https://mls.example.com/123&amp;sa=D">MLS #123</a>`

	got := DescriptionText(in, 0)
	assert.Contains(t, got, "Walkthrough of 12 Oak St")
	assert.Contains(t, got, "  • Bring keys")
	assert.Contains(t, got, "  • Check garage")
	assert.Contains(t, got, MakeHyperlink("https://mls.example.com/123", "MLS #123"))
	assert.NotContains(t, got, "<")
}

func TestDescriptionTextPlain(t *testing.T) {
	in := "Seller will be home.\r\n\r\n\r\n\r\nCall 555-0101 when   outside "
	assert.Equal(t, "Seller will be home.\n\nCall 555-0101 when outside", DescriptionText(in, 0))
	assert.Equal(t, "", DescriptionText("  \n ", 0))
	assert.Equal(t, "a < b", DescriptionText("a < b", 0))
}

func TestDescriptionTextTruncatesLinks(t *testing.T) {
	got := DescriptionText(`<a href="https://example.com">a very long link title</a>`, 6)
	assert.Equal(t, MakeHyperlink("https://example.com", "a ver…"), got)
}

func TestRealLinkTarget(t *testing.T) {
	assert.Equal(t, "https://example.com/x",
		RealLinkTarget("https://nam12.safelinks.protection.outlook.com/?url=https%3A%2F%2Fexample.com%2Fx&data=05"))
	assert.Equal(t, "https://example.com/x", RealLinkTarget("https://www.google.com/url?q=https://example.com/x"))
	assert.Equal(t, "https://example.com", RealLinkTarget("https://example.com"))
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "hello", TruncateText("hello", 5))
	assert.Equal(t, "hel…", TruncateText("hello", 4))
	assert.Equal(t, "…", TruncateText("hello", 1))
	assert.Equal(t, "hello", TruncateText("hello", 0))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "(none)", MaskSecret(""))
	assert.Equal(t, "*****", MaskSecret("short"))
	assert.Equal(t, "ya29********wxyz", MaskSecret("ya29.a0AfH6SMBxxxxwxyz"))
}
