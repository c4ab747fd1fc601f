package bsky

import (
	"log"
	"net/http"

	"github.com/PuerkitoBio/goquery"
	"github.com/quillhq/skypress/domain"
	"github.com/quillhq/skypress/util"
)

// PreviewExtractor scrapes Open Graph metadata from a freshly
// published page to build the link card.
type PreviewExtractor struct {
	client *http.Client
}

func NewPreviewExtractor(conf *util.AppConfig) *PreviewExtractor {
	return &PreviewExtractor{
		client: &http.Client{Timeout: conf.FetchTimeout()},
	}
}

// Extract fetches the page and pulls og:title, og:description and
// og:image. A page that cannot be fetched or parsed yields an empty
// Preview rather than an error; the caller decides whether partial
// metadata is enough. og:title falls back to fallbackTitle so a page
// without any Open Graph tags still produces a usable text post.
func (pe *PreviewExtractor) Extract(url, fallbackTitle string) *domain.Preview {
	preview := &domain.Preview{Url: url}

	resp, err := pe.client.Get(url)
	if err != nil {
		log.Printf("PreviewExtractor: Failed to fetch %s: %v", url, err)
		preview.Title = fallbackTitle
		return preview
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("PreviewExtractor: %s returned status %d", url, resp.StatusCode)
		preview.Title = fallbackTitle
		return preview
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		log.Printf("PreviewExtractor: Failed to parse %s: %v", url, err)
		preview.Title = fallbackTitle
		return preview
	}

	preview.Title = metaContent(doc, "og:title")
	preview.Description = metaContent(doc, "og:description")
	preview.ImageUrl = metaContent(doc, "og:image")

	if preview.Title == "" {
		preview.Title = fallbackTitle
	}

	return preview
}

func metaContent(doc *goquery.Document, property string) string {
	content, _ := doc.Find(`meta[property="` + property + `"]`).First().Attr("content")
	return content
}
