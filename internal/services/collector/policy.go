package collector

import (
	"time"

	"github.com/ternarybob/harvester/internal/models"
)

// HTTPPolicy is the per-platform fetch configuration. Task settings
// override the timeout, retry count and delay when set.
type HTTPPolicy struct {
	Timeout    time.Duration
	RetryCount int
	Delay      time.Duration
	UserAgent  string
	Headers    map[string]string
}

// fieldSelectors lists ordered CSS selector candidates per payload field;
// the first candidate yielding a non-empty value wins.
type fieldSelectors struct {
	title         []string
	price         []string
	originalPrice []string
	images        []string
	description   []string
	shopName      []string
	sales         []string
	rating        []string
	specRows      []string
	shopLinks     []string
}

// platformConfig couples a platform's HTTP policy with its selector set.
type platformConfig struct {
	policy    HTTPPolicy
	selectors fieldSelectors
}

const desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
const mobileUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"

var genericSelectors = fieldSelectors{
	title:         []string{"h1", ".title", "#title", "meta[property='og:title']"},
	price:         []string{".price", ".tm-price", "#price", "meta[property='og:price:amount']"},
	originalPrice: []string{".original-price", ".price-original", "del.price"},
	images:        []string{".main-img img", "#main-image img", ".gallery img", "img.product-image"},
	description:   []string{".description", "#description", ".detail-content", "#detail"},
	shopName:      []string{".shop-name", "#shop-name", ".seller-name"},
	sales:         []string{".sales", ".sold-count", ".deal-cnt"},
	rating:        []string{".rating", ".score", ".shop-rating"},
	specRows:      []string{".attributes-list li", ".specs li", "table.specs tr"},
	shopLinks:     []string{"a[href*='item']", ".item a", ".product a"},
}

var platformConfigs = map[models.Platform]platformConfig{
	models.PlatformTaobao: {
		policy: HTTPPolicy{
			Timeout:    10 * time.Second,
			RetryCount: 3,
			Delay:      2 * time.Second,
			UserAgent:  desktopUserAgent,
			Headers:    map[string]string{"Referer": "https://www.taobao.com"},
		},
		selectors: fieldSelectors{
			title:         []string{".tb-main-title", "h3.tb-item-title", "h1"},
			price:         []string{".tb-rmb-num", "#J_StrPrice .tb-rmb-num", ".price"},
			originalPrice: []string{"#J_StrPriceModBox .tb-rmb-num", "del.price"},
			images:        []string{"#J_UlThumb img", ".tb-thumb img", "#J_ImgBooth"},
			description:   []string{"#J_DivItemDesc", ".attributes", "#description"},
			shopName:      []string{".tb-shop-name", ".shop-name a", ".slogo-shopname"},
			sales:         []string{".tb-sell-counter", ".tb-count"},
			rating:        []string{".tb-shop-rate", ".rate-score"},
			specRows:      []string{".attributes-list li", "#J_AttrUL li"},
			shopLinks:     []string{"a[href*='item.taobao.com/item.htm']", ".item a[href*='id=']"},
		},
	},
	models.PlatformTmall: {
		policy: HTTPPolicy{
			Timeout:    10 * time.Second,
			RetryCount: 3,
			Delay:      2 * time.Second,
			UserAgent:  desktopUserAgent,
			Headers:    map[string]string{"Referer": "https://www.tmall.com"},
		},
		selectors: fieldSelectors{
			title:         []string{".tb-detail-hd h1", ".tm-detail-hd h1", "h1"},
			price:         []string{".tm-price", "#J_PromoPrice .tm-price", ".tm-promo-price .tm-price"},
			originalPrice: []string{"#J_StrPriceModBox .tm-price", "del .tm-price"},
			images:        []string{"#J_UlThumb img", ".tb-thumb img"},
			description:   []string{"#description", ".attributes", "#J_DivItemDesc"},
			shopName:      []string{".slogo-shopname strong", ".shop-name"},
			sales:         []string{".tm-ind-sellCount .tm-count", ".tm-count"},
			rating:        []string{".tm-ind-rateCount .tm-count", ".rate-score"},
			specRows:      []string{"#J_AttrUL li", ".attributes-list li"},
			shopLinks:     []string{"a[href*='detail.tmall.com/item.htm']", ".item a[href*='id=']"},
		},
	},
	models.Platform1688: {
		policy: HTTPPolicy{
			Timeout:    12 * time.Second,
			RetryCount: 3,
			Delay:      3 * time.Second,
			UserAgent:  desktopUserAgent,
			Headers:    map[string]string{"Referer": "https://www.1688.com"},
		},
		selectors: fieldSelectors{
			title:         []string{".title-text", ".d-title", "h1"},
			price:         []string{".price-text", ".value", ".price"},
			originalPrice: []string{".price-original-text", "del.price"},
			images:        []string{".detail-gallery-img img", ".tab-trigger img", ".preview img"},
			description:   []string{".desc-lazyload-container", "#desc-lazyload-container", ".content-detail"},
			shopName:      []string{".company-name", ".shop-company-name"},
			sales:         []string{".bought-count", ".sale-count"},
			rating:        []string{".score-text", ".rating"},
			specRows:      []string{".offer-attr-list .offer-attr-item", ".obj-leading li"},
			shopLinks:     []string{"a[href*='detail.1688.com/offer']", ".offer-list a"},
		},
	},
	models.PlatformPinduoduo: {
		policy: HTTPPolicy{
			Timeout:    10 * time.Second,
			RetryCount: 4,
			Delay:      3 * time.Second,
			UserAgent:  mobileUserAgent,
			Headers:    map[string]string{"Referer": "https://mobile.yangkeduo.com"},
		},
		selectors: fieldSelectors{
			title:         []string{".goods-name", ".enable-select", "h1"},
			price:         []string{".current-price", ".goods-price", ".price"},
			originalPrice: []string{".market-price", "del.price"},
			images:        []string{".goods-slider img", ".swiper-slide img"},
			description:   []string{".goods-details", ".detail-content"},
			shopName:      []string{".mall-name", ".shop-name"},
			sales:         []string{".goods-sales", ".sales-tip"},
			rating:        []string{".mall-score", ".rating"},
			specRows:      []string{".goods-property li", ".spec-list li"},
			shopLinks:     []string{"a[href*='goods.html?goods_id=']", ".goods-item a"},
		},
	},
	models.PlatformJD: {
		policy: HTTPPolicy{
			Timeout:    10 * time.Second,
			RetryCount: 3,
			Delay:      2 * time.Second,
			UserAgent:  desktopUserAgent,
			Headers:    map[string]string{"Referer": "https://www.jd.com"},
		},
		selectors: fieldSelectors{
			title:         []string{".sku-name", ".itemInfo-wrap .sku-name", "h1"},
			price:         []string{".p-price .price", ".summary-price .p-price", ".price"},
			originalPrice: []string{".p-price-old", "del.price"},
			images:        []string{"#spec-list img", ".spec-items img", "#spec-img"},
			description:   []string{"#detail .detail-content", ".p-parameter", "#description"},
			shopName:      []string{".J-hove-wrap .name a", ".shopName", ".shop-name"},
			sales:         []string{"#comment-count .count", ".comment-count"},
			rating:        []string{".score-part .score", ".rating"},
			specRows:      []string{".p-parameter-list li", ".Ptable-item dl"},
			shopLinks:     []string{"a[href*='item.jd.com/']", ".jItem a"},
		},
	},
}

// configFor returns the platform's configuration, falling back to a generic
// desktop policy for payloads classified without a selector table.
func configFor(platform models.Platform) platformConfig {
	if config, ok := platformConfigs[platform]; ok {
		return config
	}
	return platformConfig{
		policy: HTTPPolicy{
			Timeout:    10 * time.Second,
			RetryCount: 3,
			Delay:      2 * time.Second,
			UserAgent:  desktopUserAgent,
		},
		selectors: genericSelectors,
	}
}
