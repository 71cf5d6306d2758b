package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/luciusandi/bumbootools/internal/fetcher"
	"github.com/luciusandi/bumbootools/internal/types"
)

const redMartHost = "https://redmart.lazada.sg"

var (
	redMartPlyRe   = regexp.MustCompile(`(?i)(\d+)\s*-\s*ply|(\d+)\s*ply`)
	redMartSizeRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+\s*x\s*\d+\s*[^\s,]+)`),
		regexp.MustCompile(`(?i)(\d+\s*(?:Rolls?|Sheets?|Boxes?|Packs?|pcs|Per\s+Pack))`),
	}
	trackingDataRe = regexp.MustCompile(`(?s)var\s+pdpTrackingData\s*=\s*"((?:\\.|[^"])*)";`)
	wordRe         = regexp.MustCompile(`[^\w]+`)
)

// RedMart pulls brand listings from the Lazada storefront, which serves
// JSON when ajax=true is appended. Single-product jobs fall back to
// scraping the product page itself.
type RedMart struct {
	job     Job
	fetcher fetcher.Fetcher
	logger  *slog.Logger
}

func NewRedMart(job Job, f fetcher.Fetcher, logger *slog.Logger) *RedMart {
	return &RedMart{
		job:     job,
		fetcher: f,
		logger:  logger.With("component", "scrape", "site", job.Site, "slug", job.Slug),
	}
}

func (r *RedMart) Site() string { return r.job.Site }

type redMartPayload struct {
	Mods struct {
		ListItems []redMartItem `json:"listItems"`
	} `json:"mods"`
	SeoInfo struct {
		NextHref string `json:"nextHref"`
	} `json:"seoInfo"`
	MainInfo struct {
		NoMorePages bool `json:"noMorePages"`
	} `json:"mainInfo"`
}

type redMartItem struct {
	NID             string   `json:"nid"`
	ItemID          string   `json:"itemId"`
	Name            string   `json:"name"`
	ProductURL      string   `json:"productUrl"`
	PriceShow       string   `json:"priceShow"`
	Price           any      `json:"price"`
	RatingScore     any      `json:"ratingScore"`
	Review          any      `json:"review"`
	SellerName      string   `json:"sellerName"`
	ItemSoldCntShow string   `json:"itemSoldCntShow"`
	Description     []string `json:"description"`
	Icons           []any    `json:"icons"`
	Categories      []any    `json:"categories"`
	PackageInfo     string   `json:"packageInfo"`
}

func (r *RedMart) Scrape(ctx context.Context) ([]types.ProductRecord, error) {
	if apiURL := r.job.Option("api_url"); apiURL != "" {
		return r.scrapeListing(ctx, apiURL)
	}
	if pageURL := r.job.Option("url"); pageURL != "" {
		return r.scrapeProductPage(ctx, pageURL)
	}
	return nil, &types.ScrapeError{
		Site: r.job.Site,
		Slug: r.job.Slug,
		Err:  types.ErrInvalidURL,
	}
}

func (r *RedMart) scrapeListing(ctx context.Context, apiURL string) ([]types.ProductRecord, error) {
	seen := make(map[string]struct{})
	var records []types.ProductRecord

	next := apiURL
	for next != "" {
		payload, err := r.fetchJSON(ctx, next)
		if err != nil {
			return nil, err
		}
		items := payload.Mods.ListItems
		if len(items) == 0 {
			break
		}
		for _, item := range items {
			id := item.NID
			if id == "" {
				id = item.ItemID
			}
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			records = append(records, r.toRecord(item))
		}
		next = r.nextURL(payload)
	}

	r.logger.Debug("brand listing drained", "records", len(records))
	return r.filterByProductName(records), nil
}

func (r *RedMart) fetchJSON(ctx context.Context, rawURL string) (*redMartPayload, error) {
	req, err := fetcher.NewRequest(rawURL)
	if err != nil {
		return nil, &types.ScrapeError{Site: r.job.Site, Slug: r.job.Slug, Err: err}
	}
	req.Headers.Set("Accept", "application/json, text/javascript, */*; q=0.01")

	resp, err := r.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, &types.ScrapeError{Site: r.job.Site, Slug: r.job.Slug, Err: err}
	}
	var payload redMartPayload
	if err := resp.JSON(&payload); err != nil {
		return nil, &types.ScrapeError{Site: r.job.Site, Slug: r.job.Slug, Err: err}
	}
	return &payload, nil
}

// nextURL rebuilds the pagination link with the ajax query flags the
// storefront expects.
func (r *RedMart) nextURL(payload *redMartPayload) string {
	href := payload.SeoInfo.NextHref
	if href == "" {
		return ""
	}
	base, err := url.Parse(redMartHost)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	next := base.ResolveReference(ref)
	q := next.Query()
	q.Set("ajax", "true")
	if q.Get("m") == "" {
		q.Set("m", "redmart")
	}
	next.RawQuery = q.Encode()
	return next.String()
}

func (r *RedMart) toRecord(item redMartItem) types.ProductRecord {
	name := strings.TrimSpace(item.Name)

	sourceURL := item.ProductURL
	switch {
	case strings.HasPrefix(sourceURL, "//"):
		sourceURL = "https:" + sourceURL
	case sourceURL != "" && !strings.HasPrefix(sourceURL, "http"):
		sourceURL = redMartHost + "/" + strings.TrimPrefix(sourceURL, "/")
	}

	price := parsePrice(item.PriceShow)
	if price == nil {
		price = safeFloat(item.Price)
	}

	rec := types.NewRecord(r.job.Brand, name, r.job.Site)
	rec.Size = firstNonEmpty(r.job.Option("size"), r.extractSize(item))
	rec.Ply = firstNonEmpty(r.job.Option("ply"), redMartPly(name))
	rec.Price = price
	rec.TotalReviews = safeInt(item.Review)
	rec.TotalRating = safeFloat(item.RatingScore)
	rec.SourceURL = sourceURL
	rec.SetMeta("job_description", r.job.Description)
	rec.SetMeta("raw_name", name)
	rec.SetMeta("original_description", name)
	if item.PriceShow != "" {
		rec.SetMeta("price_display", item.PriceShow)
	}
	if item.SellerName != "" {
		rec.SetMeta("seller", item.SellerName)
	}
	if item.ItemSoldCntShow != "" {
		rec.SetMeta("item_sold", item.ItemSoldCntShow)
	}
	if len(item.Description) > 0 {
		rec.SetMeta("description", item.Description)
	}
	if item.PackageInfo != "" {
		rec.SetMeta("package_info", item.PackageInfo)
	}
	return rec
}

func (r *RedMart) extractSize(item redMartItem) string {
	if item.PackageInfo != "" {
		return item.PackageInfo
	}
	for _, re := range redMartSizeRes {
		if m := re.FindStringSubmatch(item.Name); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	if len(item.Description) > 0 {
		joined := strings.Join(item.Description, " ")
		for _, re := range redMartSizeRes {
			if m := re.FindStringSubmatch(joined); m != nil {
				return strings.TrimSpace(m[1])
			}
		}
	}
	return ""
}

func redMartPly(name string) string {
	m := redMartPlyRe.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

// filterByProductName narrows a brand listing down to one product when
// the job pins a product name; unmatched listings pass through intact.
func (r *RedMart) filterByProductName(records []types.ProductRecord) []types.ProductRecord {
	target := normalizeName(r.job.Option("product_name"))
	if target == "" {
		return records
	}
	var matched []types.ProductRecord
	for _, rec := range records {
		if !strings.Contains(normalizeName(rec.Description), target) {
			continue
		}
		if override := r.job.Option("description"); override != "" {
			rec.Description = override
		}
		matched = append(matched, rec)
	}
	if len(matched) > 0 {
		return matched
	}
	return records
}

func normalizeName(s string) string {
	return strings.TrimSpace(wordRe.ReplaceAllString(strings.ToLower(s), " "))
}

// scrapeProductPage extracts price and rating from a single product
// page. The storefront embeds a pdpTrackingData blob plus ld+json
// structured data; either may be missing, so a record is always
// produced with whatever was found.
func (r *RedMart) scrapeProductPage(ctx context.Context, pageURL string) ([]types.ProductRecord, error) {
	rec := types.NewRecord(r.job.Brand, r.job.Description, r.job.Site)
	rec.Size = r.job.Option("size")
	rec.Ply = r.job.Option("ply")
	rec.SourceURL = pageURL
	rec.SetMeta("job_description", r.job.Description)
	rec.SetMeta("source_note", "product-page-fallback")

	req, err := fetcher.NewRequest(pageURL)
	if err != nil {
		return []types.ProductRecord{rec}, nil
	}
	resp, err := r.fetcher.Fetch(ctx, req)
	if err != nil {
		r.logger.Warn("product page fetch failed", "url", pageURL, "error", err)
		return []types.ProductRecord{rec}, nil
	}

	if tracking := extractTrackingData(resp.Body); tracking != nil {
		rec.SetMeta("tracking_data", tracking)
		if v, ok := tracking["pdt_price"].(string); ok {
			rec.Price = parsePrice(v)
		}
		if rec.Description == "" {
			if v, ok := tracking["pdt_name"].(string); ok {
				rec.Description = v
			}
		}
		if v, ok := tracking["ratingValue"]; ok {
			rec.TotalRating = safeFloat(v)
		}
		if v, ok := tracking["reviewCount"]; ok {
			rec.TotalReviews = safeInt(v)
		}
	}

	rating, reviews := parseStructuredRating(resp.Body)
	if rec.TotalRating == nil {
		rec.TotalRating = rating
	}
	if rec.TotalReviews == nil {
		rec.TotalReviews = reviews
	}
	return []types.ProductRecord{rec}, nil
}

// extractTrackingData decodes the escaped JSON string assigned to
// pdpTrackingData in an inline script.
func extractTrackingData(body []byte) map[string]any {
	m := trackingDataRe.FindSubmatch(body)
	if m == nil {
		return nil
	}
	decoded, err := strconv.Unquote(`"` + string(m[1]) + `"`)
	if err != nil {
		decoded = string(m[1])
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(decoded), &data); err != nil {
		return nil
	}
	return data
}

// parseStructuredRating pulls aggregateRating out of the page's ld+json
// script blocks.
func parseStructuredRating(body []byte) (*float64, *int) {
	doc, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, nil
	}
	var nodes []*html.Node
	nodes, err = htmlquery.QueryAll(doc, `//script[@type='application/ld+json']`)
	if err != nil {
		return nil, nil
	}
	for _, node := range nodes {
		rating, reviews := ratingFromLDJSON(htmlquery.InnerText(node))
		if rating != nil || reviews != nil {
			return rating, reviews
		}
	}
	return nil, nil
}

func ratingFromLDJSON(text string) (*float64, *int) {
	var data map[string]any
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, nil
	}
	agg, ok := data["aggregateRating"].(map[string]any)
	if !ok {
		return nil, nil
	}
	return safeFloat(agg["ratingValue"]), safeInt(agg["reviewCount"])
}
