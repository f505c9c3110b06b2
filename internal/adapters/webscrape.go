package adapters

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lulai-platform/lulai-backend/internal/errs"
	"github.com/lulai-platform/lulai-backend/internal/logger"
	"github.com/lulai-platform/lulai-backend/internal/types"
)

const scrapeUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// maxScrapeSections caps how many records a single page can produce.
const maxScrapeSections = 50

// webscrapeAdapter turns a single web page into source records: one record
// per heading-delimited section, with the page title as a catch-all when the
// page has no usable headings.
type webscrapeAdapter struct {
	log    *logger.Logger
	client *http.Client
}

func NewWebscrapeAdapter(log *logger.Logger, client *http.Client) Adapter {
	return &webscrapeAdapter{log: log.With("adapter", PlatformWebscrape), client: client}
}

func (a *webscrapeAdapter) FetchRecords(ctx context.Context, src Source) ([]types.SourceRecord, error) {
	base, err := validateSourceURL(src.URL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, errs.E(errs.KindInvalidSource, "fetch page", "build request", err)
	}
	req.Header.Set("User-Agent", scrapeUserAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, classifyFetchErr("fetch page", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errs.E(errs.KindInvalidSource, "fetch page", fmt.Sprintf("upstream status %d", resp.StatusCode), nil)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errs.E(errs.KindInvalidSource, "parse page", "unparseable html", err)
	}

	pageTitle := strings.TrimSpace(doc.Find("title").First().Text())
	if pageTitle == "" {
		pageTitle = base.Host
	}
	pageType := detectPageType(doc)

	sections := collectSections(doc, pageTitle)
	records := make([]types.SourceRecord, 0, len(sections))
	for i, sec := range sections {
		if i >= maxScrapeSections {
			break
		}
		records = append(records, types.SourceRecord{
			ID:           fmt.Sprintf("%s#%d", base.Host, i),
			Name:         sec.heading,
			Category:     pageType,
			URL:          src.URL,
			Availability: types.AvailabilityInStock,
			SourceType:   types.SourceTypeWebscrape,
			Description: types.SourceDescription{
				Title:    sec.heading,
				Overview: sec.text,
				Details:  "Source: " + src.URL,
			},
		})
	}
	if len(records) == 0 {
		return nil, errs.E(errs.KindInvalidSource, "parse page", "no readable content found", nil)
	}
	a.log.Debug("Scraped page", "url", src.URL, "page_type", pageType, "sections", len(records))
	return records, nil
}

// detectPageType mirrors the og:type sniffing used by storefront pages;
// anything unrecognized is "generic".
func detectPageType(doc *goquery.Document) string {
	og, _ := doc.Find(`meta[property="og:type"]`).Attr("content")
	switch {
	case strings.Contains(og, "product"):
		return "product"
	case strings.Contains(og, "article"):
		return "article"
	default:
		return "generic"
	}
}

type scrapedSection struct {
	heading string
	text    string
}

// collectSections groups paragraph text under its nearest preceding heading.
// Script/style/nav noise is excluded by only walking content elements.
func collectSections(doc *goquery.Document, pageTitle string) []scrapedSection {
	var sections []scrapedSection
	current := scrapedSection{heading: pageTitle}

	flush := func() {
		current.text = strings.TrimSpace(current.text)
		if current.text != "" {
			sections = append(sections, current)
		}
	}

	doc.Find("h1, h2, h3, p, li").Each(func(_ int, sel *goquery.Selection) {
		text := strings.Join(strings.Fields(sel.Text()), " ")
		if text == "" {
			return
		}
		switch goquery.NodeName(sel) {
		case "h1", "h2", "h3":
			flush()
			current = scrapedSection{heading: text}
		default:
			if current.text != "" {
				current.text += "\n"
			}
			current.text += text
		}
	})
	flush()

	if len(sections) == 0 {
		if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok && strings.TrimSpace(desc) != "" {
			sections = append(sections, scrapedSection{heading: pageTitle, text: strings.TrimSpace(desc)})
		}
	}
	return sections
}
