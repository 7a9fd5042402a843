package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/models"
)

const sampleProductHTML = `<html><body>
<h1>精选羊毛衫</h1>
<div class="price">128.00</div>
<div class="gallery">
	<img src="/img/main.jpg">
	<img data-src="https://img.alicdn.com/imgextra/alt.jpg">
</div>
<div class="description"><p>一件非常优质的羊毛衫，厚实保暖。</p></div>
<div class="shop-name">精品服饰店</div>
<div class="sales">月销2000+</div>
<ul class="specs">
	<li>材质: 羊毛</li>
	<li>厚度：加厚</li>
</ul>
</body></html>`

func TestGoqueryExtractor_FirstMatchWins(t *testing.T) {
	extractor := NewGoqueryExtractor(common.GetLogger())

	payload, err := extractor.Extract(sampleProductHTML, "", "https://shop.example.com/product/1")
	require.NoError(t, err)

	assert.Equal(t, "精选羊毛衫", payload.Title)
	assert.Equal(t, "128.00", payload.Price)
	assert.Equal(t, "精品服饰店", payload.ShopName)
	assert.Equal(t, "月销2000+", payload.Sales)
	assert.Contains(t, payload.Description, "优质的羊毛衫")

	require.Len(t, payload.Images, 2)
	assert.Equal(t, "https://shop.example.com/img/main.jpg", payload.Images[0], "relative URLs resolve against the page")
	assert.Equal(t, "https://img.alicdn.com/imgextra/alt.jpg", payload.Images[1])

	assert.Equal(t, map[string]string{
		"材质": "羊毛",
		"厚度": "加厚",
	}, payload.Specifications)
}

func TestGoqueryExtractor_MissingFieldsLeftEmpty(t *testing.T) {
	extractor := NewGoqueryExtractor(common.GetLogger())

	payload, err := extractor.Extract("<html><body><h1>只有标题</h1></body></html>", "", "https://example.com/p")
	require.NoError(t, err)

	assert.Equal(t, "只有标题", payload.Title)
	assert.Empty(t, payload.Price)
	assert.Empty(t, payload.Images)

	// The validation stage, not the extractor, decides this is unusable.
	err = validatePayload(payload, "https://example.com/p")
	require.Error(t, err)
	assert.True(t, models.IsExtractionError(err))
}

func TestMockExtractor_Deterministic(t *testing.T) {
	extractor := NewMockExtractor()

	first, err := extractor.Extract("", models.PlatformTaobao, "https://item.taobao.com/item.htm?id=1")
	require.NoError(t, err)
	second, err := extractor.Extract("", models.PlatformTaobao, "https://item.taobao.com/item.htm?id=1")
	require.NoError(t, err)
	other, err := extractor.Extract("", models.PlatformTaobao, "https://item.taobao.com/item.htm?id=2")
	require.NoError(t, err)

	assert.Equal(t, first, second, "same URL must fabricate the same payload")
	assert.NotEqual(t, first.Title, other.Title)

	require.NoError(t, validatePayload(first, "https://item.taobao.com/item.htm?id=1"))
}
