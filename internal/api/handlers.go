package api

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/luciusandi/bumbootools/internal/storage"
	"github.com/luciusandi/bumbootools/internal/types"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "backend": s.store.Name()})
}

// handlePrices returns raw price rows, optionally narrowed to one
// brand, one site, and one UTC day.
func (s *Server) handlePrices(c *gin.Context) {
	q := storage.Query{Limit: 500}
	if brand := c.Query("brand"); brand != "" {
		q.Brands = []string{brand}
	}
	if site := c.Query("site"); site != "" {
		q.Sites = []string{site}
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 5000 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 5000"})
			return
		}
		q.Limit = limit
	}
	if date := c.Query("date"); date != "" {
		day, err := time.ParseInLocation("2006-01-02", date, time.UTC)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		q.Since = day
		q.Until = day.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}

	records, err := s.store.ReadWindow(c.Request.Context(), q)
	if err != nil {
		s.logger.Error("prices query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage query failed"})
		return
	}
	if records == nil {
		records = []types.ProductRecord{}
	}
	c.JSON(http.StatusOK, records)
}

// productAggregate is one product summarized across sites and days.
type productAggregate struct {
	Brand       string   `json:"brand"`
	Description string   `json:"description"`
	Size        string   `json:"size"`
	Sites       []string `json:"sites"`
	SitesCount  int      `json:"sites_count"`
	Count       int      `json:"count"`
	AvgPrice    *float64 `json:"avg_price"`
	MinPrice    *float64 `json:"min_price"`
	MaxPrice    *float64 `json:"max_price"`
	LatestPrice *float64 `json:"latest_price"`

	latestAt time.Time
	sites    map[string]struct{}
	prices   []float64
}

// handleProducts aggregates observations by brand, description, and
// size over the past N days, grouping across sites.
func (s *Server) handleProducts(c *gin.Context) {
	days, ok := s.windowDays(c)
	if !ok {
		return
	}

	q := storage.Query{Since: time.Now().UTC().AddDate(0, 0, -days)}
	if brand := c.Query("brand"); brand != "" {
		q.Brands = []string{brand}
	}
	if site := c.Query("site"); site != "" {
		q.Sites = []string{site}
	}

	records, err := s.store.ReadWindow(c.Request.Context(), q)
	if err != nil {
		s.logger.Error("products query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage query failed"})
		return
	}

	agg := make(map[[3]string]*productAggregate)
	var order [][3]string
	for _, rec := range records {
		key := [3]string{rec.Brand, rec.Description, rec.Size}
		a, exists := agg[key]
		if !exists {
			a = &productAggregate{
				Brand:       rec.Brand,
				Description: rec.Description,
				Size:        rec.Size,
				sites:       make(map[string]struct{}),
			}
			agg[key] = a
			order = append(order, key)
		}
		a.Count++
		if rec.Site != "" {
			a.sites[rec.Site] = struct{}{}
		}
		if rec.Price != nil {
			a.prices = append(a.prices, *rec.Price)
		}
		if rec.CollectedAt.After(a.latestAt) {
			a.latestAt = rec.CollectedAt
			a.LatestPrice = rec.Price
		}
	}

	out := make([]*productAggregate, 0, len(order))
	for _, key := range order {
		a := agg[key]
		a.Sites = sortedKeys(a.sites)
		a.SitesCount = len(a.Sites)
		if len(a.prices) > 0 {
			sum, lo, hi := a.prices[0], a.prices[0], a.prices[0]
			for _, p := range a.prices[1:] {
				sum += p
				if p < lo {
					lo = p
				}
				if p > hi {
					hi = p
				}
			}
			avg := sum / float64(len(a.prices))
			a.AvgPrice, a.MinPrice, a.MaxPrice = &avg, &lo, &hi
		}
		out = append(out, a)
	}
	c.JSON(http.StatusOK, out)
}

// historyPoint is one day of per-site average prices for a product.
type historyPoint struct {
	Date        string   `json:"date"`
	Count       int      `json:"count"`
	FairPrice   *float64 `json:"fairprice"`
	ColdStorage *float64 `json:"coldStorage"`
	RedMart     *float64 `json:"redmart"`
}

// handlePriceHistory returns a daily time series for one product, with
// each known storefront averaged into its own field. Days without
// observations are omitted.
func (s *Server) handlePriceHistory(c *gin.Context) {
	brand := c.Query("brand")
	description := c.Query("description")
	if brand == "" || description == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "brand and description are required"})
		return
	}
	days, ok := s.windowDays(c)
	if !ok {
		return
	}

	start := time.Now().UTC().AddDate(0, 0, -days)
	q := storage.Query{Brands: []string{brand}, Since: start}
	if site := c.Query("site"); site != "" {
		q.Sites = []string{site}
	}

	records, err := s.store.ReadWindow(c.Request.Context(), q)
	if err != nil {
		s.logger.Error("price-history query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage query failed"})
		return
	}

	// buckets[day][siteField] accumulates prices for averaging.
	type bucket struct {
		sum   map[string]float64
		n     map[string]int
		count int
	}
	buckets := make(map[string]*bucket)
	for _, rec := range records {
		if rec.Description != description || rec.Price == nil {
			continue
		}
		day := rec.CollectedAt.UTC().Format("2006-01-02")
		b, exists := buckets[day]
		if !exists {
			b = &bucket{sum: make(map[string]float64), n: make(map[string]int)}
			buckets[day] = b
		}
		b.count++
		if field := siteField(rec.Site); field != "" {
			b.sum[field] += *rec.Price
			b.n[field]++
		}
	}

	out := make([]historyPoint, 0, len(buckets))
	for i := 0; i <= days; i++ {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		b, exists := buckets[day]
		if !exists || b.count == 0 {
			continue
		}
		point := historyPoint{Date: day, Count: b.count}
		for field, n := range b.n {
			avg := b.sum[field] / float64(n)
			switch field {
			case "fairprice":
				point.FairPrice = &avg
			case "coldStorage":
				point.ColdStorage = &avg
			case "redmart":
				point.RedMart = &avg
			}
		}
		out = append(out, point)
	}
	c.JSON(http.StatusOK, out)
}

// windowDays parses the days parameter, capped by the configured
// maximum window.
func (s *Server) windowDays(c *gin.Context) (int, bool) {
	days := 30
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > s.cfg.API.MaxWindowDays {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "days must be between 1 and " + strconv.Itoa(s.cfg.API.MaxWindowDays),
			})
			return 0, false
		}
		days = parsed
	}
	return days, true
}

// siteField maps free-text storefront names onto the stable series
// names the frontend charts expect.
func siteField(site string) string {
	s := strings.ToLower(strings.TrimSpace(site))
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	switch {
	case strings.Contains(s, "fairprice") || strings.Contains(s, "fair price"):
		return "fairprice"
	case strings.Contains(s, "coldstorage") || strings.Contains(s, "cold storage") || strings.Contains(s, "cold"):
		return "coldStorage"
	case strings.Contains(s, "redmart") || strings.Contains(s, "red mart") || strings.Contains(s, "lazada"):
		return "redmart"
	default:
		return ""
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
