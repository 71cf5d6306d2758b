package targets

// The FairPrice category API takes the whole experiment cocktail the
// web client sends; without it some layouts come back empty. Only the
// brand filter varies per target.
const fairPriceAPIPrefix = "https://website-api.omni.fairprice.com.sg/api/layout/category/v2?" +
	"algopers=prm-ppb-1%2Cprm-ep-1%2Ct-epds-1%2Ct-ppb-0%2Ct-ep-0&" +
	"category=bathroom-tissues&" +
	"experiments=ls_deltime-sortA%2CsearchVariant-B%2Cgv-A%2Cshelflife-B%2Cds-A%2Cls_comsl-B%2C" +
	"cartfiller-a%2Ccatnav-hide%2Ccatbubog-B%2Csbanner-A%2Ccount-b%2Ccam-a%2Cpromobanner-c%2C" +
	"algopers-b%2Cdlv_pref_mf-B%2Cdelivery_pref_ffs-C%2Cdelivery_pref_pfc-C%2Ccrtalc-B%2C" +
	"crt-v-wbble-A%2Czero_search_swimlane-A%2Csd-var-a%2CslotIncentive-eco%2Cosmos-on%2Cgsc-a%2C" +
	"camp-lbl-B%2Cpoa-entry-A&filter=brand%3A"

func fairPriceAPIURL(brand string) string {
	return fairPriceAPIPrefix + brand + "&includeTagDetails=true&orderType=DELIVERY&page={page}&url=bathroom-tissues"
}

const coldStorageCategoryBase = "https://coldstorage.com.sg/en/category/100013-100174-101066/1.html?proCatId=1&proId="

func coldStorageTarget(slug, brand, proID string) Target {
	return Target{
		Slug:        slug,
		Brand:       brand,
		Description: brand + " assortment at Cold Storage",
		Site:        "Cold Storage",
		Kind:        KindColdStorage,
		URL:         coldStorageCategoryBase + proID,
	}
}

func fairPriceTarget(slug, brand, filter string) Target {
	return Target{
		Slug:        slug,
		Brand:       brand,
		Description: brand + " assortment at FairPrice",
		Site:        "FairPrice",
		Kind:        KindFairPrice,
		URL:         "https://www.fairprice.com.sg/category/bathroom-tissues?filter=brand%3A" + filter,
		Extra:       map[string]string{"api_url": fairPriceAPIURL(filter)},
	}
}

func redMartTarget(slug, brand, path string) Target {
	base := "https://redmart.lazada.sg/shop-groceries-laundry-household-paper/"
	return Target{
		Slug:        slug,
		Brand:       brand,
		Description: brand + " assortment at RedMart",
		Site:        "RedMart",
		Kind:        KindRedMart,
		URL:         base + path + "?m=redmart",
		Extra:       map[string]string{"api_url": base + path + "?ajax=true&m=redmart"},
	}
}

var catalog = buildCatalog()

func buildCatalog() map[string]Target {
	list := []Target{
		{
			Slug:        "example-ultra-soft",
			Brand:       "Example Brand",
			Description: "Ultra Soft Mega Pack",
			Site:        "Example Store",
			Kind:        KindStatic,
			URL:         "https://example.com/toilet-paper",
			Size:        "24 Mega Rolls",
			Ply:         "3",
			Extra: map[string]string{
				"total_reviews": "1500",
				"total_rating":  "4.9",
				"price":         "24.99",
			},
		},

		coldStorageTarget("coldstorage-kleenex", "Kleenex", "32643"),
		coldStorageTarget("coldstorage-nootrees", "Nootrees", "46847"),
		coldStorageTarget("coldstorage-paseo", "Paseo", "42272"),
		coldStorageTarget("coldstorage-pursoft", "Pursoft", "48698"),
		coldStorageTarget("coldstorage-vinda", "Vinda", "33232"),
		coldStorageTarget("coldstorage-tempo", "Tempo", "32949"),
		coldStorageTarget("coldstorage-cloversoft", "Cloversoft", "45287"),

		fairPriceTarget("fairprice-kleenex", "Kleenex", "kleenex"),
		fairPriceTarget("fairprice-paseo", "Paseo", "paseo"),
		fairPriceTarget("fairprice-pursoft", "Pursoft", "pursoft"),
		fairPriceTarget("fairprice-fairprice", "FairPrice", "fairprice"),
		fairPriceTarget("fairprice-beautex", "Beautex", "beautex"),
		fairPriceTarget("fairprice-neutra", "Neutra", "neutra"),
		fairPriceTarget("fairprice-cloversoft", "Cloversoft", "cloversoft"),
		fairPriceTarget("fairprice-nootrees", "Nootrees", "nootrees"),
		fairPriceTarget("fairprice-tempo", "Tempo", "tempo"),

		redMartTarget("redmart-tempo", "Tempo", "tem-po/"),
		redMartTarget("redmart-kleenex", "Kleenex", "kleenex/"),
		redMartTarget("redmart-pursoft", "Pursoft", "pursoft/"),
		redMartTarget("redmart-vinda", "Vinda", "vin-da/"),
		redMartTarget("redmart-beautex", "Beautex", "beautex/"),
		redMartTarget("redmart-paseo", "Paseo", "paseo_1/"),
		redMartTarget("redmart-cloversoft", "Cloversoft", "cloversoft/"),
		redMartTarget("redmart-nootrees", "Nootrees", "nootrees/"),
	}

	out := make(map[string]Target, len(list))
	for _, t := range list {
		out[t.Slug] = t
	}
	return out
}
