package scrape

import (
	"context"
	"testing"
)

const redMartPage1 = `{
  "mods": {"listItems": [
    {
      "nid": "1001",
      "name": "Kleenex Ultra Soft Toilet Tissue 3-Ply 20 x 190 sheets",
      "productUrl": "//redmart.lazada.sg/products/kleenex-ultra-soft-1001.html",
      "priceShow": "$13.90",
      "ratingScore": "4.7",
      "review": "215",
      "sellerName": "RedMart",
      "packageInfo": "20 x 190 sheets"
    },
    {
      "nid": "1001",
      "name": "duplicate of the first item",
      "priceShow": "$1.00"
    },
    {
      "itemId": "1002",
      "name": "Kleenex Clean Care 2ply 30 Rolls",
      "productUrl": "/products/kleenex-clean-care-1002.html",
      "price": 18.5,
      "description": ["Soft and absorbent", "30 Rolls per carton"]
    }
  ]},
  "seoInfo": {"nextHref": "/redmart-brand/kleenex?page=2"}
}`

const redMartPage2 = `{
  "mods": {"listItems": [
    {
      "nid": "1003",
      "name": "Kleenex Cottony Soft 10x200s",
      "productUrl": "//redmart.lazada.sg/products/kleenex-cottony-1003.html",
      "priceShow": "$7.25"
    }
  ]},
  "seoInfo": {},
  "mainInfo": {"noMorePages": true}
}`

const redMartProductPage = `<html><head>
<script type="application/ld+json">
{"@type": "Product", "aggregateRating": {"ratingValue": "4.5", "reviewCount": "88"}}
</script>
<script>
var pdpTrackingData = "{\"pdt_price\":\"S$21.90\",\"pdt_name\":\"Kleenex Mega Pack\"}";
</script>
</head><body></body></html>`

func redMartJob(options map[string]string) Job {
	return Job{
		Slug:        "redmart-kleenex",
		Brand:       "Kleenex",
		Description: "Kleenex assortment",
		Site:        "RedMart",
		Options:     options,
	}
}

func TestRedMartListingPaginationAndDedup(t *testing.T) {
	const apiURL = "https://redmart.lazada.sg/redmart-brand/kleenex?ajax=true"
	stub := newStubFetcher()
	stub.add(apiURL, redMartPage1)
	stub.add("https://redmart.lazada.sg/redmart-brand/kleenex?ajax=true&m=redmart&page=2", redMartPage2)

	job := redMartJob(map[string]string{"api_url": apiURL})
	records, err := NewRedMart(job, stub, testLogger()).Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3 (duplicate nid dropped)", len(records))
	}
	if len(stub.calls) != 2 {
		t.Fatalf("made %d fetches, want 2", len(stub.calls))
	}

	first := records[0]
	if first.Price == nil || *first.Price != 13.90 {
		t.Errorf("price = %v, want 13.90 from priceShow", first.Price)
	}
	if first.Size != "20 x 190 sheets" {
		t.Errorf("size = %q, want packageInfo value", first.Size)
	}
	if first.Ply != "3" {
		t.Errorf("ply = %q, want 3 from 3-Ply marker", first.Ply)
	}
	if first.TotalRating == nil || *first.TotalRating != 4.7 {
		t.Errorf("rating = %v", first.TotalRating)
	}
	if first.TotalReviews == nil || *first.TotalReviews != 215 {
		t.Errorf("reviews = %v", first.TotalReviews)
	}
	if first.SourceURL != "https://redmart.lazada.sg/products/kleenex-ultra-soft-1001.html" {
		t.Errorf("source url = %q", first.SourceURL)
	}

	second := records[1]
	if second.Price == nil || *second.Price != 18.5 {
		t.Errorf("numeric price = %v, want 18.5", ptrFloat(second.Price))
	}
	if second.Size != "30 Rolls" {
		t.Errorf("size = %q, want 30 Rolls from name", second.Size)
	}

	third := records[2]
	if third.Price == nil || *third.Price != 7.25 {
		t.Errorf("page 2 price = %v, want 7.25 from priceShow", ptrFloat(third.Price))
	}
	if third.Size != "10x200s" {
		t.Errorf("page 2 size = %q, want 10x200s from name", third.Size)
	}
}

func ptrFloat(p *float64) any {
	if p == nil {
		return "<nil>"
	}
	return *p
}

func TestRedMartProductNameFilter(t *testing.T) {
	const apiURL = "https://redmart.lazada.sg/redmart-brand/kleenex-filtered?ajax=true"
	stub := newStubFetcher()
	stub.add(apiURL, redMartPage2)

	job := redMartJob(map[string]string{
		"api_url":      apiURL,
		"product_name": "Cottony Soft",
		"description":  "Cottony Clean",
	})
	records, err := NewRedMart(job, stub, testLogger()).Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Description != "Cottony Clean" {
		t.Errorf("description override not applied: %q", records[0].Description)
	}
}

func TestRedMartProductNameFilterNoMatchKeepsAll(t *testing.T) {
	const apiURL = "https://redmart.lazada.sg/redmart-brand/kleenex-nomatch?ajax=true"
	stub := newStubFetcher()
	stub.add(apiURL, redMartPage2)

	job := redMartJob(map[string]string{
		"api_url":      apiURL,
		"product_name": "does not exist anywhere",
	})
	records, err := NewRedMart(job, stub, testLogger()).Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("filter with no hits must keep all records, got %d", len(records))
	}
}

func TestRedMartProductPageFallback(t *testing.T) {
	const pageURL = "https://redmart.lazada.sg/products/kleenex-mega-pack.html"
	stub := newStubFetcher()
	stub.add(pageURL, redMartProductPage)

	job := redMartJob(map[string]string{"url": pageURL, "size": "24 x 220", "ply": "3"})
	records, err := NewRedMart(job, stub, testLogger()).Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	rec := records[0]
	if rec.Price == nil || *rec.Price != 21.90 {
		t.Errorf("price = %v, want 21.90 from tracking data", rec.Price)
	}
	if rec.TotalRating == nil || *rec.TotalRating != 4.5 {
		t.Errorf("rating = %v, want 4.5 from ld+json", rec.TotalRating)
	}
	if rec.TotalReviews == nil || *rec.TotalReviews != 88 {
		t.Errorf("reviews = %v, want 88 from ld+json", rec.TotalReviews)
	}
	if rec.Size != "24 x 220" {
		t.Errorf("size = %q", rec.Size)
	}
	if rec.Description != "Kleenex assortment" {
		t.Errorf("description = %q, want job description", rec.Description)
	}
}

func TestRedMartProductPageFetchFailureStillYieldsRecord(t *testing.T) {
	job := redMartJob(map[string]string{"url": "https://redmart.lazada.sg/products/missing.html"})
	records, err := NewRedMart(job, newStubFetcher(), testLogger()).Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1 placeholder", len(records))
	}
	if records[0].Price != nil {
		t.Errorf("placeholder price = %v, want nil", records[0].Price)
	}
}

func TestRedMartMissingOptions(t *testing.T) {
	job := redMartJob(nil)
	if _, err := NewRedMart(job, newStubFetcher(), testLogger()).Scrape(context.Background()); err == nil {
		t.Fatal("expected error when neither api_url nor url is set")
	}
}
