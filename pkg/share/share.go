package share

import (
	"bytes"
	"fmt"
	"html"
	"math"
	"os"
	"path/filepath"
	"regexp"

	"github.com/dustin/go-humanize"

	"walrusweb/pkg/models"
)

const (
	IndexFile = "index.html"
	ogImage   = "/walrus-logo.jpg"
)

var (
	titleRe       = regexp.MustCompile(`(?s)<title>.*?</title>`)
	descriptionRe = regexp.MustCompile(`<meta name="description" content=".*?" />`)
	headCloseRe   = regexp.MustCompile(`</head>`)
)

// Renderer builds the pitch share page from the frontend's index.html
type Renderer struct {
	distDir string
}

func NewRenderer(distDir string) *Renderer {
	return &Renderer{distDir: distDir}
}

// IndexPath is the path of the frontend entry page
func (r *Renderer) IndexPath() string {
	return filepath.Join(r.distDir, IndexFile)
}

// RenderPitch returns index.html with the title, description and OpenGraph
// tags describing the pitch. The page is read on every call so a frontend
// redeploy needs no restart.
func (r *Renderer) RenderPitch(pitch models.PitchRecord) ([]byte, error) {
	page, err := os.ReadFile(r.IndexPath())
	if err != nil {
		return nil, fmt.Errorf("error reading page template: %w", err)
	}
	return InjectMeta(page, PitchTitle(pitch), PitchDescription(pitch)), nil
}

// PitchTitle is the share page title for a pitch
func PitchTitle(pitch models.PitchRecord) string {
	return pitch.MerchantName + " — Custom Walrus Rate"
}

// PitchDescription is the share page description for a pitch
func PitchDescription(pitch models.PitchRecord) string {
	return fmt.Sprintf(
		"See your custom Walrus Payments rate and estimated annual savings of $%s.",
		humanize.Comma(int64(math.Round(pitch.AnnualSavings))),
	)
}

// InjectMeta replaces the first title and description tags of page and
// appends OpenGraph tags to its head. title and description are escaped.
func InjectMeta(page []byte, title string, description string) []byte {
	escTitle := html.EscapeString(title)
	escDescription := html.EscapeString(description)
	ogTags := fmt.Sprintf(`
    <meta property="og:title" content="%s" />
    <meta property="og:description" content="%s" />
    <meta property="og:image" content="%s" />
    <meta property="og:type" content="website" />
    <meta name="twitter:card" content="summary_large_image" />
  `, escTitle, escDescription, ogImage)

	page = replaceFirst(page, titleRe, "<title>"+escTitle+"</title>")
	page = replaceFirst(page, descriptionRe, `<meta name="description" content="`+escDescription+`" />`)
	page = replaceFirst(page, headCloseRe, ogTags+"\n  </head>")
	return page
}

func replaceFirst(src []byte, re *regexp.Regexp, repl string) []byte {
	loc := re.FindIndex(src)
	if loc == nil {
		return src
	}
	var buf bytes.Buffer
	buf.Grow(len(src) + len(repl))
	buf.Write(src[:loc[0]])
	buf.WriteString(repl)
	buf.Write(src[loc[1]:])
	return buf.Bytes()
}
