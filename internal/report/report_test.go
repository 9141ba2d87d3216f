package report

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/personalens/personalens/internal/browser"
	"github.com/personalens/personalens/internal/core"
)

func testResult() *core.MBTIResult {
	return &core.MBTIResult{
		Username:   "jack",
		Type:       "INTJ",
		Confidence: 0.63,
		Axes: []core.AxisScore{
			{Dimension: "EI", Value: "I", Percent: 72, Evidence: "long-form systematic posts"},
			{Dimension: "SN", Value: "N", Percent: 65},
			{Dimension: "TF", Value: "T", Percent: 60},
			{Dimension: "JP", Value: "J", Percent: 55},
		},
		Summary:    "A reserved systems thinker.",
		Model:      "gemini-2.5-flash",
		TweetCount: 42,
		AnalyzedAt: time.Now().UTC(),
	}
}

func TestGenerateWritesReport(t *testing.T) {
	g := &Generator{OutputDir: t.TempDir()}

	sample := &core.TweetSample{
		Username:  "jack",
		Originals: []core.Tweet{{Text: "gm", AuthorName: "Jack Dorsey"}},
		Replies:   []core.Tweet{{Text: "@biz yes", IsReply: true}},
	}

	path, err := g.Generate(testResult(), sample)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.True(t, strings.HasPrefix(filepath.Base(path), "mbti_report_jack_"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(content)
	require.Contains(t, html, "INTJ")
	require.Contains(t, html, "Architect")
	require.Contains(t, html, "Jack Dorsey")
	require.Contains(t, html, "Introversion (I)")
	require.Contains(t, html, "[*******---]")
	require.Contains(t, html, "1 originals, 1 replies")
	require.Contains(t, html, "A reserved systems thinker.")
}

func TestGenerateEscapesModelOutput(t *testing.T) {
	g := &Generator{OutputDir: t.TempDir()}

	result := testResult()
	result.Summary = `<script>alert("x")</script>`

	path, err := g.Generate(result, nil)
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(content), "<script>alert")
}

func TestProgressBar(t *testing.T) {
	require.Equal(t, "**********", progressBar(100))
	require.Equal(t, "*****-----", progressBar(50))
	require.Equal(t, "*******---", progressBar(72))
	require.Equal(t, "----------", progressBar(0))
}

func TestTypeDescriptionFallback(t *testing.T) {
	require.Contains(t, typeDescription("INTJ"), "Architect")
	require.Equal(t, "a distinctive personality type", typeDescription("XXXX"))
}

func TestAsciiArtHasFourLetters(t *testing.T) {
	art := asciiArt("INTJ")
	lines := strings.Split(art, "\n")
	require.Len(t, lines, 6)
	require.NotEmpty(t, lines[0])
}

type stubPage struct {
	data []byte
}

func (p *stubPage) RenderPNG(ctx context.Context, url string, width int) ([]byte, error) {
	return p.data, nil
}

func (p *stubPage) Close() error { return nil }

type stubAcquirer struct {
	page browser.Page
}

func (a *stubAcquirer) Acquire(ctx context.Context) (browser.Page, error) {
	return a.page, nil
}

func encodeTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestExportPNGWritesScreenshotAndThumbnail(t *testing.T) {
	dir := t.TempDir()
	htmlPath := filepath.Join(dir, "report.html")
	require.NoError(t, os.WriteFile(htmlPath, []byte("<html></html>"), 0o644))

	shot := encodeTestPNG(t, 900, 1200)
	e := &Exporter{
		Manager:       &browser.Manager{Acquirer: &stubAcquirer{page: &stubPage{data: shot}}},
		ViewportWidth: 900,
		ThumbnailSize: 256,
	}

	outPath, err := e.ExportPNG(context.Background(), htmlPath, "")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "report.png"), outPath)
	require.FileExists(t, outPath)

	thumbPath := filepath.Join(dir, "report.thumbnail.png")
	require.FileExists(t, thumbPath)

	thumbFile, err := os.Open(thumbPath)
	require.NoError(t, err)
	defer thumbFile.Close()

	thumb, err := png.Decode(thumbFile)
	require.NoError(t, err)
	require.Equal(t, 256, thumb.Bounds().Dy())
	require.LessOrEqual(t, thumb.Bounds().Dx(), 256)
}

func TestExportPNGMissingReport(t *testing.T) {
	e := &Exporter{Manager: &browser.Manager{Acquirer: &stubAcquirer{page: &stubPage{}}}}

	_, err := e.ExportPNG(context.Background(), filepath.Join(t.TempDir(), "absent.html"), "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")
}
