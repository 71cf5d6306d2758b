package scrape

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/luciusandi/bumbootools/internal/fetcher"
	"github.com/luciusandi/bumbootools/internal/types"
)

const fairPriceProductBase = "https://www.fairprice.com.sg/product/"

// FairPrice walks the brand-filtered category API page by page until
// pagination is exhausted.
type FairPrice struct {
	job     Job
	fetcher fetcher.Fetcher
	logger  *slog.Logger
}

func NewFairPrice(job Job, f fetcher.Fetcher, logger *slog.Logger) *FairPrice {
	return &FairPrice{
		job:     job,
		fetcher: f,
		logger:  logger.With("component", "scrape", "site", job.Site, "slug", job.Slug),
	}
}

func (f *FairPrice) Site() string { return f.job.Site }

type fairPricePayload struct {
	Data struct {
		Page struct {
			Layouts []struct {
				Value *fairPriceLayout `json:"value"`
				Data  *fairPriceLayout `json:"data"`
			} `json:"layouts"`
		} `json:"page"`
	} `json:"data"`
}

type fairPriceLayout struct {
	Collection *fairPriceCollection `json:"collection"`
}

type fairPriceCollection struct {
	Product    []fairPriceProduct `json:"product"`
	Pagination struct {
		TotalPages int `json:"total_pages"`
	} `json:"pagination"`
}

type fairPriceProduct struct {
	Name              string         `json:"name"`
	Slug              string         `json:"slug"`
	FinalPrice        any            `json:"final_price"`
	StoreSpecificData []struct {
		MRP any `json:"mrp"`
	} `json:"storeSpecificData"`
	Offers []struct {
		Price any `json:"price"`
	} `json:"offers"`
	Reviews struct {
		Statistics struct {
			Total   any `json:"total"`
			Average any `json:"average"`
		} `json:"statistics"`
	} `json:"reviews"`
	MetaData map[string]any `json:"metaData"`
}

func (f *FairPrice) Scrape(ctx context.Context) ([]types.ProductRecord, error) {
	template := f.job.Option("api_url")
	var records []types.ProductRecord

	for page := 1; ; page++ {
		collection, err := f.fetchPage(ctx, template, page)
		if err != nil {
			return nil, err
		}
		if collection == nil || len(collection.Product) == 0 {
			break
		}
		for _, item := range collection.Product {
			records = append(records, f.toRecord(item))
		}
		totalPages := collection.Pagination.TotalPages
		if totalPages == 0 {
			totalPages = page
		}
		if page >= totalPages {
			break
		}
	}

	f.logger.Debug("category API drained", "records", len(records))
	return records, nil
}

func (f *FairPrice) fetchPage(ctx context.Context, template string, page int) (*fairPriceCollection, error) {
	pageURL := strings.ReplaceAll(template, "{page}", strconv.Itoa(page))
	req, err := fetcher.NewRequest(pageURL)
	if err != nil {
		return nil, &types.ScrapeError{Site: f.job.Site, Slug: f.job.Slug, Err: err}
	}
	req.Headers.Set("Accept", "application/json")

	resp, err := f.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, &types.ScrapeError{Site: f.job.Site, Slug: f.job.Slug, Err: err}
	}

	var payload fairPricePayload
	if err := resp.JSON(&payload); err != nil {
		return nil, &types.ScrapeError{Site: f.job.Site, Slug: f.job.Slug, Err: err}
	}

	// Collections are buried under either "value" or "data" depending on
	// the layout variant the API serves.
	for _, layout := range payload.Data.Page.Layouts {
		holder := layout.Value
		if holder == nil {
			holder = layout.Data
		}
		if holder != nil && holder.Collection != nil {
			return holder.Collection, nil
		}
	}
	return nil, nil
}

func (f *FairPrice) toRecord(item fairPriceProduct) types.ProductRecord {
	name := strings.TrimSpace(item.Name)

	price := safeFloat(item.FinalPrice)
	var listPrice, promoPrice *float64
	if len(item.StoreSpecificData) > 0 {
		listPrice = safeFloat(item.StoreSpecificData[0].MRP)
	}
	if len(item.Offers) > 0 {
		promoPrice = safeFloat(item.Offers[0].Price)
		if promoPrice != nil {
			price = promoPrice
		}
	}

	displayUnit, _ := item.MetaData["DisplayUnit"].(string)
	origin, _ := item.MetaData["Country of Origin"].(string)

	rec := types.NewRecord(f.job.Brand, name, f.job.Site)
	rec.Size = displayUnit
	rec.Ply = extractPly(name)
	rec.Price = price
	rec.TotalReviews = safeInt(item.Reviews.Statistics.Total)
	rec.TotalRating = safeFloat(item.Reviews.Statistics.Average)
	rec.SourceURL = fairPriceProductBase + item.Slug
	rec.SetMeta("job_description", f.job.Description)
	rec.SetMeta("raw_name", name)
	if listPrice != nil {
		rec.SetMeta("list_price", *listPrice)
	}
	if promoPrice != nil {
		rec.SetMeta("promotion_price", *promoPrice)
	}
	if displayUnit != "" {
		rec.SetMeta("display_unit", displayUnit)
	}
	if origin != "" {
		rec.SetMeta("country_of_origin", origin)
	}
	return rec
}
