package share

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walrusweb/pkg/models"
)

const testIndex = `<!doctype html>
<html lang="en">
  <head>
    <meta charset="UTF-8" />
    <meta name="description" content="Lower processing rates for local businesses." />
    <title>Walrus Payments</title>
  </head>
  <body><div id="root"></div></body>
</html>
`

func writeIndex(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, IndexFile), []byte(testIndex), 0o600))
	return dir
}

func TestRenderPitch(t *testing.T) {
	renderer := NewRenderer(writeIndex(t))
	page, err := renderer.RenderPitch(models.PitchRecord{
		ID:            "abc",
		MerchantName:  "Blue Plate Diner",
		AnnualSavings: 39600,
	})
	require.NoError(t, err)
	out := string(page)

	assert.Contains(t, out, "<title>Blue Plate Diner — Custom Walrus Rate</title>")
	assert.Contains(t, out, `<meta name="description" content="See your custom Walrus Payments rate and estimated annual savings of $39,600." />`)
	assert.Contains(t, out, `<meta property="og:title" content="Blue Plate Diner — Custom Walrus Rate" />`)
	assert.Contains(t, out, `<meta property="og:image" content="/walrus-logo.jpg" />`)
	assert.NotContains(t, out, "Lower processing rates")
	assert.Equal(t, 1, strings.Count(out, "</head>"))
	assert.Less(t, strings.Index(out, "og:type"), strings.Index(out, "</head>"))
}

func TestRenderPitchEscapesMerchantName(t *testing.T) {
	renderer := NewRenderer(writeIndex(t))
	page, err := renderer.RenderPitch(models.PitchRecord{
		MerchantName: `Bob's "Diner" <script>alert(1)</script>`,
	})
	require.NoError(t, err)
	out := string(page)
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, "&#34;Diner&#34;")
	assert.Contains(t, out, "$0.")
}

func TestRenderPitchMissingTemplate(t *testing.T) {
	renderer := NewRenderer(t.TempDir())
	_, err := renderer.RenderPitch(models.PitchRecord{MerchantName: "x"})
	assert.Error(t, err)
}

func TestInjectMetaWithoutTags(t *testing.T) {
	page := []byte("<html><body>bare</body></html>")
	assert.Equal(t, page, InjectMeta(page, "t", "d"))
}

func TestPitchDescriptionLargeSavings(t *testing.T) {
	desc := PitchDescription(models.PitchRecord{AnnualSavings: 1234567})
	assert.Equal(t, "See your custom Walrus Payments rate and estimated annual savings of $1,234,567.", desc)
}
