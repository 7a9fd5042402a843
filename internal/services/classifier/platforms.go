package classifier

import (
	"regexp"

	"github.com/ternarybob/harvester/internal/models"
)

// platformPattern describes how URLs of one source platform are recognized
// and normalized. Patterns are evaluated in order; first match wins.
type platformPattern struct {
	platform    models.Platform
	hostMarkers []string       // substrings that identify the platform in the URL host
	shopMarkers []string       // substrings that identify a shop/listing page
	itemID      *regexp.Regexp // extracts the platform item identifier, group 1
	itemURL     string         // canonical item URL format, %s = item id
}

// platformPatterns is the ordered recognition table. Tmall must precede
// taobao: tmall URLs frequently carry taobao marketing parameters and would
// otherwise misclassify.
var platformPatterns = []platformPattern{
	{
		platform:    models.PlatformTmall,
		hostMarkers: []string{"tmall.com", "tmall.hk"},
		shopMarkers: []string{"shop", "store", "/category"},
		itemID:      regexp.MustCompile(`[?&]id=(\d+)`),
		itemURL:     "https://detail.tmall.com/item.htm?id=%s",
	},
	{
		platform:    models.PlatformTaobao,
		hostMarkers: []string{"taobao.com", "tb.cn"},
		shopMarkers: []string{"shop", "store", "/search"},
		itemID:      regexp.MustCompile(`[?&]id=(\d+)`),
		itemURL:     "https://item.taobao.com/item.htm?id=%s",
	},
	{
		platform:    models.Platform1688,
		hostMarkers: []string{"1688.com"},
		shopMarkers: []string{"winport", "shop", "/page/offerlist"},
		itemID:      regexp.MustCompile(`/offer/(\d+)`),
		itemURL:     "https://detail.1688.com/offer/%s.html",
	},
	{
		platform:    models.PlatformPinduoduo,
		hostMarkers: []string{"pinduoduo.com", "yangkeduo.com"},
		shopMarkers: []string{"mall_page", "/mall/", "shop"},
		itemID:      regexp.MustCompile(`[?&]goods_id=(\d+)`),
		itemURL:     "https://mobile.yangkeduo.com/goods.html?goods_id=%s",
	},
	{
		platform:    models.PlatformJD,
		hostMarkers: []string{"jd.com", "jd.hk"},
		shopMarkers: []string{"mall.jd", "shop", "/list"},
		itemID:      regexp.MustCompile(`/(\d+)\.html`),
		itemURL:     "https://item.jd.com/%s.html",
	},
}
