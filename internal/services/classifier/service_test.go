package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/models"
)

func newTestService() *Service {
	return NewService(common.GetLogger())
}

func TestClassify_ProductURLs(t *testing.T) {
	svc := newTestService()

	tests := []struct {
		name           string
		url            string
		wantPlatform   models.Platform
		wantID         string
		wantNormalized string
	}{
		{
			name:           "taobao item page",
			url:            "https://item.taobao.com/item.htm?id=674829105382&spm=a21bo.1.1",
			wantPlatform:   models.PlatformTaobao,
			wantID:         "taobao_674829105382",
			wantNormalized: "https://item.taobao.com/item.htm?id=674829105382",
		},
		{
			name:           "tmall item page",
			url:            "https://detail.tmall.com/item.htm?id=625449277201",
			wantPlatform:   models.PlatformTmall,
			wantID:         "tmall_625449277201",
			wantNormalized: "https://detail.tmall.com/item.htm?id=625449277201",
		},
		{
			name:           "1688 offer page",
			url:            "https://detail.1688.com/offer/657032283119.html",
			wantPlatform:   models.Platform1688,
			wantID:         "1688_657032283119",
			wantNormalized: "https://detail.1688.com/offer/657032283119.html",
		},
		{
			name:           "pinduoduo goods page",
			url:            "https://mobile.yangkeduo.com/goods.html?goods_id=280587334591",
			wantPlatform:   models.PlatformPinduoduo,
			wantID:         "pinduoduo_280587334591",
			wantNormalized: "https://mobile.yangkeduo.com/goods.html?goods_id=280587334591",
		},
		{
			name:           "jd item page",
			url:            "https://item.jd.com/100043187342.html",
			wantPlatform:   models.PlatformJD,
			wantID:         "jd_100043187342",
			wantNormalized: "https://item.jd.com/100043187342.html",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.Classify(tt.url)

			require.True(t, got.Valid)
			assert.Equal(t, tt.wantPlatform, got.Platform)
			assert.Equal(t, models.IntentProduct, got.Intent)
			assert.Equal(t, tt.wantID, got.ID)
			assert.Equal(t, tt.wantNormalized, got.NormalizedURL)
			assert.Equal(t, tt.url, got.OriginalURL)
			assert.InDelta(t, 0.95, got.Confidence, 0.0001)
		})
	}
}

func TestClassify_ShopURLs(t *testing.T) {
	svc := newTestService()

	tests := []struct {
		name         string
		url          string
		wantPlatform models.Platform
	}{
		{
			name:         "taobao shop",
			url:          "https://shop105682813.taobao.com",
			wantPlatform: models.PlatformTaobao,
		},
		{
			name:         "1688 winport",
			url:          "https://ruimeng8888.1688.com/page/offerlist.htm",
			wantPlatform: models.Platform1688,
		},
		{
			name:         "jd mall",
			url:          "https://mall.jd.com/index-1000004123.html",
			wantPlatform: models.PlatformJD,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.Classify(tt.url)

			require.True(t, got.Valid)
			assert.Equal(t, tt.wantPlatform, got.Platform)
			assert.Equal(t, models.IntentShop, got.Intent)
			assert.NotEmpty(t, got.ID)
		})
	}
}

func TestClassify_TmallTakesPrecedenceOverTaobao(t *testing.T) {
	svc := newTestService()

	// Tmall item URLs often carry taobao tracking parameters.
	got := svc.Classify("https://detail.tmall.com/item.htm?id=123456&union_lens=taobao")

	require.True(t, got.Valid)
	assert.Equal(t, models.PlatformTmall, got.Platform)
}

func TestClassify_UnknownPlatform(t *testing.T) {
	svc := newTestService()

	got := svc.Classify("https://www.example.com/product/123")

	assert.False(t, got.Valid)
	assert.Equal(t, float64(0), got.Confidence)
	assert.Empty(t, got.Platform)
	assert.Equal(t, "https://www.example.com/product/123", got.NormalizedURL)
	assert.NotEmpty(t, got.ID)
}

func TestClassify_RoundTrip(t *testing.T) {
	svc := newTestService()

	urls := []string{
		"https://item.taobao.com/item.htm?id=674829105382&scm=1007.1",
		"https://detail.tmall.com/item.htm?id=625449277201",
		"https://detail.1688.com/offer/657032283119.html?spm=a260k",
		"https://mobile.yangkeduo.com/goods.html?goods_id=280587334591",
		"https://item.jd.com/100043187342.html",
		"https://shop105682813.taobao.com",
	}

	for _, url := range urls {
		first := svc.Classify(url)
		require.True(t, first.Valid, "url %s should classify", url)

		second := svc.Classify(first.NormalizedURL)
		assert.Equal(t, first.Platform, second.Platform, "round trip platform mismatch for %s", url)
	}
}

func TestClassifyAll_PreservesOrderAndInvalids(t *testing.T) {
	svc := newTestService()

	urls := []string{
		"https://item.taobao.com/item.htm?id=1",
		"https://www.example.com/nothing",
		"https://item.jd.com/2.html",
	}

	got := svc.ClassifyAll(urls)

	require.Len(t, got, 3)
	assert.True(t, got[0].Valid)
	assert.False(t, got[1].Valid)
	assert.True(t, got[2].Valid)
	assert.Equal(t, models.PlatformTaobao, got[0].Platform)
	assert.Equal(t, models.PlatformJD, got[2].Platform)
}
