package contentfilter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/models"
)

func newTestService() *Service {
	return NewService(common.GetLogger(), common.NewDefaultConfig())
}

var allCategories = []models.FilterCategory{
	models.FilterCategoryPlatform,
	models.FilterCategoryRegion,
	models.FilterCategoryShipping,
}

func TestFilterText_RemovesPlatformRegionAndReplacesShipping(t *testing.T) {
	svc := newTestService()

	filtered, results := svc.FilterText("淘宝心爱的羊毛衫 广东省广州市 包邮", allCategories, nil)

	assert.NotContains(t, filtered, "淘宝")
	assert.NotContains(t, filtered, "广东省广州市")
	assert.NotContains(t, filtered, "包邮")
	assert.Contains(t, filtered, "心爱的羊毛衫")
	assert.Contains(t, filtered, "含配送")

	actions := map[string]models.FilterAction{}
	for _, r := range results {
		actions[r.OriginalValue] = r.Action
	}
	assert.Equal(t, models.FilterActionRemoved, actions["淘宝"])
	assert.Equal(t, models.FilterActionReplaced, actions["包邮"])
}

func TestFilterText_Idempotent(t *testing.T) {
	svc := newTestService()

	inputs := []string{
		"淘宝心爱的羊毛衫 广东省广州市 包邮",
		"天猫旗舰店 顺丰次日达 联系13812345678",
		"normal english title with taobao link https://item.taobao.com/item.htm?id=1",
		"拼多多 义乌市小商品 联系 seller@example.com",
		"   plain   text   with   spaces   ",
		"",
	}

	for _, input := range inputs {
		once, _ := svc.FilterText(input, allCategories, nil)
		twice, _ := svc.FilterText(once, allCategories, nil)
		assert.Equal(t, once, twice, "filter not idempotent for %q", input)
	}
}

func TestFilterText_StripsPII(t *testing.T) {
	svc := newTestService()

	filtered, results := svc.FilterText("客服电话13812345678 邮箱seller@example.com 详见www.example.com/page", allCategories, nil)

	assert.NotContains(t, filtered, "13812345678")
	assert.NotContains(t, filtered, "seller@example.com")
	assert.NotContains(t, filtered, "www.example.com")

	reasons := map[string]bool{}
	for _, r := range results {
		reasons[r.Reason] = true
	}
	assert.True(t, reasons["phone"])
	assert.True(t, reasons["email"])
	assert.True(t, reasons["url"])
}

func TestFilterText_CustomKeywords(t *testing.T) {
	svc := newTestService()

	filtered, results := svc.FilterText("limited edition wholesale lot", nil, []string{"wholesale"})

	assert.Equal(t, "limited edition lot", filtered)
	require.Len(t, results, 1)
	assert.Equal(t, models.FilterCategoryKeyword, results[0].Type)
	assert.Equal(t, models.FilterActionRemoved, results[0].Action)
}

func TestFilterTitle_StripsBracketsAndPlatform(t *testing.T) {
	svc := newTestService()

	filtered, _ := svc.FilterTitle("【天猫正品】羊毛衫（加厚款）", nil)

	assert.Equal(t, "正品羊毛衫加厚款", filtered)
}

func TestFilterTitle_CapsLength(t *testing.T) {
	svc := newTestService()

	long := strings.Repeat("长", 80)
	filtered, results := svc.FilterTitle(long, nil)

	runes := []rune(filtered)
	assert.LessOrEqual(t, len(runes), 60)
	assert.Equal(t, "…", string(runes[len(runes)-1]))

	var truncation *models.FilterResult
	for i := range results {
		if results[i].Action == models.FilterActionReplaced && results[i].Field == "title" {
			truncation = &results[i]
		}
	}
	require.NotNil(t, truncation, "truncation must be logged as replaced")
	assert.Equal(t, models.FilterCategoryLength, truncation.Type, "length cap is not a keyword hit")

	// Capping an already-capped title changes nothing.
	again, _ := svc.FilterTitle(filtered, nil)
	assert.Equal(t, filtered, again)
}

func TestFilterDescription_StripsHTMLAndShipping(t *testing.T) {
	svc := newTestService()

	filtered, _ := svc.FilterDescription("<div><p>优质羊毛衫</p><p>全国包邮 顺丰发货</p></div>", nil)

	assert.NotContains(t, filtered, "<")
	assert.NotContains(t, filtered, "包邮")
	assert.NotContains(t, filtered, "顺丰")
	assert.Contains(t, filtered, "优质羊毛衫")
}

func TestFilterImageURLs_DropsPlatformHosts(t *testing.T) {
	svc := newTestService()

	urls := []string{
		"https://img.alicdn.com/imgextra/i1/abc.jpg",
		"https://item.taobao.com/banner.png",
		"https://img10.360buyimg.com/n1/def.jpg",
		"https://mall.jd.com/promo.gif",
	}

	kept, results := svc.FilterImageURLs(urls)

	assert.Equal(t, []string{
		"https://img.alicdn.com/imgextra/i1/abc.jpg",
		"https://img10.360buyimg.com/n1/def.jpg",
	}, kept)

	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, models.FilterActionFlagged, r.Action)
		assert.Empty(t, r.FilteredValue, "image filtering never rewrites")
	}
}

func TestFilterSpecifications_DropsEmptiedPairs(t *testing.T) {
	svc := newTestService()

	specs := map[string]string{
		"材质":  "羊毛",
		"发货地": "广东省广州市",
	}

	filtered, results := svc.FilterSpecifications(specs, nil)

	assert.Equal(t, map[string]string{"材质": "羊毛"}, filtered)

	dropped := false
	for _, r := range results {
		if r.Action == models.FilterActionRemoved && r.Reason == "specification emptied by filtering" {
			dropped = true
		}
	}
	assert.True(t, dropped)
}

func TestDetectSensitiveContent(t *testing.T) {
	svc := newTestService()

	clean := svc.DetectSensitiveContent("a perfectly ordinary sweater")
	assert.Equal(t, 0, clean.TotalMatches)
	assert.Equal(t, float64(0), clean.Confidence)

	mild := svc.DetectSensitiveContent("淘宝 包邮")
	assert.Equal(t, 2, mild.TotalMatches)
	assert.InDelta(t, 0.2, mild.Confidence, 0.0001)

	heavy := svc.DetectSensitiveContent(strings.Repeat("淘宝 ", 15))
	assert.Equal(t, float64(1), heavy.Confidence, "confidence is capped at 1")
}

func TestCheckContentLength_Boundary(t *testing.T) {
	svc := newTestService()

	below := svc.CheckContentLength(strings.Repeat("a", 9), 10, 5000)
	require.NotNil(t, below)
	assert.Equal(t, models.FilterActionRejected, below.Action)

	exact := svc.CheckContentLength(strings.Repeat("a", 10), 10, 5000)
	assert.Nil(t, exact)

	over := svc.CheckContentLength(strings.Repeat("a", 5001), 10, 5000)
	require.NotNil(t, over)
	assert.Equal(t, models.FilterActionRejected, over.Action)
}

func TestFilterProductData_ComposesFieldFilters(t *testing.T) {
	svc := newTestService()

	payload := &models.RawPayload{
		Title:       "淘宝羊毛衫 包邮",
		Price:       "128.00",
		Images:      []string{"https://img.alicdn.com/a.jpg", "https://detail.tmall.com/b.jpg"},
		Description: "<p>天猫发售 优质羊毛</p>",
		ShopName:    "某某服饰",
		Specifications: map[string]string{
			"材质": "羊毛",
		},
	}

	filtered, results := svc.FilterProductData(payload, nil)

	assert.NotContains(t, filtered.Title, "淘宝")
	assert.NotContains(t, filtered.Description, "天猫")
	assert.Len(t, filtered.Images, 1)
	assert.Equal(t, "128.00", filtered.Price, "price passes through untouched")
	assert.NotEmpty(t, results)

	// Original payload is not mutated.
	assert.Contains(t, payload.Title, "淘宝")
	assert.Len(t, payload.Images, 2)
}
