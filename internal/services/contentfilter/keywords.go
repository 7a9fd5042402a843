package contentfilter

import (
	"regexp"

	"github.com/ternarybob/harvester/internal/models"
)

// keywordEntry maps a banned token to its replacement. An empty replacement
// means the token is removed outright.
type keywordEntry struct {
	keyword     string
	replacement string
}

// Entries are ordered slices, not maps: substitution order must be
// deterministic, and longer tokens must run before their prefixes
// (e.g. 淘宝网 before 淘宝, 广东省 before 广东).
var (
	platformKeywords = []keywordEntry{
		{keyword: "阿里巴巴", replacement: ""},
		{keyword: "拼多多", replacement: ""},
		{keyword: "聚划算", replacement: ""},
		{keyword: "淘宝网", replacement: ""},
		{keyword: "淘宝", replacement: ""},
		{keyword: "天猫国际", replacement: ""},
		{keyword: "天猫", replacement: ""},
		{keyword: "京东自营", replacement: ""},
		{keyword: "京东", replacement: ""},
		{keyword: "淘特", replacement: ""},
		{keyword: "1688", replacement: ""},
		{keyword: "pinduoduo", replacement: ""},
		{keyword: "taobao", replacement: ""},
		{keyword: "tmall", replacement: ""},
		{keyword: "jd.com", replacement: ""},
	}

	regionKeywords = []keywordEntry{
		{keyword: "广东省广州市", replacement: ""},
		{keyword: "广东省", replacement: ""},
		{keyword: "广州市", replacement: ""},
		{keyword: "深圳市", replacement: ""},
		{keyword: "浙江省", replacement: ""},
		{keyword: "杭州市", replacement: ""},
		{keyword: "义乌市", replacement: ""},
		{keyword: "金华市", replacement: ""},
		{keyword: "江苏省", replacement: ""},
		{keyword: "福建省", replacement: ""},
		{keyword: "莆田市", replacement: ""},
		{keyword: "上海市", replacement: ""},
		{keyword: "北京市", replacement: ""},
	}

	shippingKeywords = []keywordEntry{
		{keyword: "免运费", replacement: "含配送"},
		{keyword: "包邮", replacement: "含配送"},
		{keyword: "顺丰", replacement: "快递"},
		{keyword: "圆通", replacement: "快递"},
		{keyword: "中通", replacement: "快递"},
		{keyword: "申通", replacement: "快递"},
		{keyword: "韵达", replacement: "快递"},
		{keyword: "极兔", replacement: "快递"},
		{keyword: "邮政EMS", replacement: "快递"},
		{keyword: "次日达", replacement: ""},
		{keyword: "当日发货", replacement: ""},
		{keyword: "48小时发货", replacement: ""},
	}
)

// categoryKeywords returns the built-in table for a category. Custom
// keywords are supplied per call and always removed, never replaced.
func categoryKeywords(category models.FilterCategory) []keywordEntry {
	switch category {
	case models.FilterCategoryPlatform:
		return platformKeywords
	case models.FilterCategoryRegion:
		return regionKeywords
	case models.FilterCategoryShipping:
		return shippingKeywords
	default:
		return nil
	}
}

// piiPattern is one entry of the fixed post-keyword regex pass. Every match
// is stripped and logged as removed.
type piiPattern struct {
	name     string
	category models.FilterCategory
	re       *regexp.Regexp
}

var piiPatterns = []piiPattern{
	{
		name:     "phone",
		category: models.FilterCategoryKeyword,
		re:       regexp.MustCompile(`1[3-9]\d{9}`),
	},
	{
		name:     "landline",
		category: models.FilterCategoryKeyword,
		re:       regexp.MustCompile(`\d{3,4}-\d{7,8}`),
	},
	{
		name:     "email",
		category: models.FilterCategoryKeyword,
		re:       regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
	},
	{
		name:     "url",
		category: models.FilterCategoryKeyword,
		re:       regexp.MustCompile(`(https?://|www\.)[^\s\p{Han}]+`),
	},
	{
		name:     "region_composite",
		category: models.FilterCategoryRegion,
		re:       regexp.MustCompile(`\p{Han}{1,8}(省|自治区)\p{Han}{1,8}市`),
	},
	{
		name:     "ship_from",
		category: models.FilterCategoryRegion,
		re:       regexp.MustCompile(`(发货地|产地)[:：]?\s*\p{Han}{1,10}`),
	},
}
