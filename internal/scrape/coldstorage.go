package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/luciusandi/bumbootools/internal/fetcher"
	"github.com/luciusandi/bumbootools/internal/types"
)

const coldStorageCardSelector = "div.list-wrapper div.row-container a.ware-wrapper"

var (
	nonDigitRe   = regexp.MustCompile(`[^\d]`)
	nonDecimalRe = regexp.MustCompile(`[^\d.]`)
)

// ColdStorage parses toilet paper listings from Cold Storage category
// pages. Prices are rendered as split dollar and cent nodes that need
// reassembly.
type ColdStorage struct {
	job     Job
	fetcher fetcher.Fetcher
	logger  *slog.Logger
}

func NewColdStorage(job Job, f fetcher.Fetcher, logger *slog.Logger) *ColdStorage {
	return &ColdStorage{
		job:     job,
		fetcher: f,
		logger:  logger.With("component", "scrape", "site", job.Site, "slug", job.Slug),
	}
}

func (c *ColdStorage) Site() string { return c.job.Site }

func (c *ColdStorage) Scrape(ctx context.Context) ([]types.ProductRecord, error) {
	if detail := c.job.Option("detail_url"); detail != "" {
		return c.scrapeDetailPage(ctx, detail)
	}

	listURL := c.job.Option("url")
	doc, finalURL, err := c.fetchDocument(ctx, listURL)
	if err != nil {
		return nil, err
	}

	base, _ := url.Parse(finalURL)
	var records []types.ProductRecord
	doc.Find(coldStorageCardSelector).Each(func(_ int, card *goquery.Selection) {
		name := strings.TrimSpace(card.Find(".name").First().Text())
		if name == "" {
			return
		}
		rec := types.NewRecord(c.job.Brand, name, c.job.Site)
		rec.Size = firstNonEmpty(c.job.Option("size"), extractSize(name, c.job.Brand))
		rec.Ply = firstNonEmpty(c.job.Option("ply"), extractPly(name))
		rec.Price = c.cardPrice(card)
		rec.SourceURL = resolveHref(base, card.AttrOr("href", ""))
		rec.SetMeta("job_description", c.job.Description)
		rec.SetMeta("raw_name", name)
		if list := c.cardListPrice(card); list != nil {
			rec.SetMeta("list_price", *list)
		}
		rec.SetMeta("sold_out", card.Find(".sold").Length() > 0)
		records = append(records, rec)
	})

	c.logger.Debug("listing page parsed", "url", listURL, "records", len(records))
	return records, nil
}

// scrapeDetailPage handles targets pinned to a single product page
// rather than a category listing.
func (c *ColdStorage) scrapeDetailPage(ctx context.Context, pageURL string) ([]types.ProductRecord, error) {
	doc, _, err := c.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	info := doc.Find(".info-content").First()
	if info.Length() == 0 {
		return nil, nil
	}
	title := info.Find(".title").First()
	priceLine := info.Find(".price-line").First()
	if title.Length() == 0 || priceLine.Length() == 0 {
		return nil, nil
	}

	name := strings.TrimSpace(title.Text())
	desc := firstNonEmpty(c.job.Option("detail_description"), name)

	rec := types.NewRecord(c.job.Brand, desc, c.job.Site)
	rec.Size = firstNonEmpty(c.job.Option("size"), extractSize(name, c.job.Brand))
	rec.Ply = firstNonEmpty(c.job.Option("ply"), extractPly(name))
	rec.Price = c.detailPrice(priceLine)
	rec.SourceURL = pageURL
	rec.SetMeta("job_description", c.job.Description)
	rec.SetMeta("detail_url", pageURL)
	rec.SetMeta("original_description", name)
	return []types.ProductRecord{rec}, nil
}

func (c *ColdStorage) fetchDocument(ctx context.Context, rawURL string) (*goquery.Document, string, error) {
	req, err := fetcher.NewRequest(rawURL)
	if err != nil {
		return nil, "", &types.ScrapeError{Site: c.job.Site, Slug: c.job.Slug, Err: err}
	}
	resp, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, "", &types.ScrapeError{Site: c.job.Site, Slug: c.job.Slug, Err: err}
	}
	doc, err := resp.Document()
	if err != nil {
		return nil, "", &types.ScrapeError{Site: c.job.Site, Slug: c.job.Slug, Err: err}
	}
	return doc, resp.FinalURL, nil
}

// cardPrice reassembles a price split across ".price" (dollars) and
// ".small-price" (cents) nodes.
func (c *ColdStorage) cardPrice(card *goquery.Selection) *float64 {
	dollars := sanitizeDigits(card.Find(".price-box .price").First().Text())
	if dollars == "" {
		return nil
	}
	cents := sanitizeDigits(card.Find(".price-box .small-price").First().Text())
	if cents == "" {
		cents = "00"
	}
	return assemblePrice(dollars, cents)
}

func (c *ColdStorage) cardListPrice(card *goquery.Selection) *float64 {
	raw := nonDecimalRe.ReplaceAllString(card.Find(".price-box .line-price").First().Text(), "")
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func (c *ColdStorage) detailPrice(priceLine *goquery.Selection) *float64 {
	whole := sanitizeDigits(priceLine.Find(".price").First().Text())
	frac := sanitizeDigits(priceLine.Find(".price-small").First().Text())
	if whole == "" && frac == "" {
		return nil
	}
	if whole == "" {
		whole = "0"
	}
	if frac == "" {
		frac = "00"
	}
	for len(frac) < 2 {
		frac += "0"
	}
	return assemblePrice(whole, frac)
}

func sanitizeDigits(s string) string {
	return nonDigitRe.ReplaceAllString(strings.TrimSpace(s), "")
}

func assemblePrice(whole, frac string) *float64 {
	if len(frac) < 2 {
		frac = "0" + frac
	}
	v, err := strconv.ParseFloat(fmt.Sprintf("%s.%s", whole, frac), 64)
	if err != nil {
		return nil
	}
	return &v
}

func resolveHref(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
