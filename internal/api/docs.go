package api

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/cozy-creator/classify-server/internal/app"

	"github.com/gin-gonic/gin"
	"github.com/gomarkdown/markdown"
	mhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

type DocsUsage struct {
	SinglePrediction string   `json:"single_prediction"`
	BatchPrediction  string   `json:"batch_prediction"`
	SupportedFormats []string `json:"supported_formats"`
	MaxBatchSize     int      `json:"max_batch_size"`
}

type DocsResponse struct {
	Endpoints map[string]string `json:"endpoints"`
	Usage     DocsUsage         `json:"usage"`
}

var supportedFormats = []string{"PNG", "JPG", "JPEG", "GIF", "BMP", "TIFF", "WEBP"}

// BuildDocs describes the routes this instance actually serves.
func BuildDocs(app *app.App) DocsResponse {
	endpoints := map[string]string{
		"GET /":               "Root endpoint with API info",
		"GET /health":         "Health check endpoint",
		"GET /model-info":     "Get model information",
		"POST /predict":       "Predict single image",
		"POST /predict-batch": "Predict multiple images",
		"GET /api-docs":       "This documentation",
	}
	if app.HistoryEnabled() {
		endpoints["GET /predictions"] = "Recent predictions, newest first (?limit=N)"
	}

	return DocsResponse{
		Endpoints: endpoints,
		Usage: DocsUsage{
			SinglePrediction: "POST /predict with image file",
			BatchPrediction:  "POST /predict-batch with multiple image files",
			SupportedFormats: supportedFormats,
			MaxBatchSize:     app.Config().MaxBatchSize,
		},
	}
}

// APIDocs answers JSON unless the client prefers HTML.
func APIDocs(c *gin.Context) {
	app := c.MustGet("app").(*app.App)
	docs := BuildDocs(app)

	if c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEHTML {
		c.Data(http.StatusOK, "text/html; charset=utf-8", renderDocs(docs))
		return
	}

	c.JSON(http.StatusOK, docs)
}

func docsMarkdown(docs DocsResponse) []byte {
	routes := make([]string, 0, len(docs.Endpoints))
	for route := range docs.Endpoints {
		routes = append(routes, route)
	}
	sort.Strings(routes)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n## Endpoints\n\n| Route | Description |\n|---|---|\n", ServiceName)
	for _, route := range routes {
		fmt.Fprintf(&b, "| `%s` | %s |\n", route, docs.Endpoints[route])
	}

	fmt.Fprintf(&b, "\n## Usage\n\n")
	fmt.Fprintf(&b, "- Single prediction: %s\n", docs.Usage.SinglePrediction)
	fmt.Fprintf(&b, "- Batch prediction: %s\n", docs.Usage.BatchPrediction)
	fmt.Fprintf(&b, "- Supported formats: %s\n", strings.Join(docs.Usage.SupportedFormats, ", "))
	fmt.Fprintf(&b, "- Max batch size: %d\n", docs.Usage.MaxBatchSize)

	return []byte(b.String())
}

func renderDocs(docs DocsResponse) []byte {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse(docsMarkdown(docs))

	opts := mhtml.RendererOptions{Flags: mhtml.CommonFlags | mhtml.HrefTargetBlank | mhtml.CompletePage, Title: ServiceName}
	renderer := mhtml.NewRenderer(opts)
	return markdown.Render(doc, renderer)
}
