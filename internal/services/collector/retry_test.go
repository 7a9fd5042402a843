package collector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/models"
)

func TestExecuteWithRetry_RetriesFetchErrors(t *testing.T) {
	policy := NewRetryPolicy(3, time.Millisecond)

	attempts := 0
	body, err := policy.ExecuteWithRetry(context.Background(), common.GetLogger(), func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", &models.FetchError{URL: "http://example.com", StatusCode: 503}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", body)
	assert.Equal(t, 3, attempts)
}

func TestExecuteWithRetry_ExhaustsBudget(t *testing.T) {
	policy := NewRetryPolicy(3, time.Millisecond)

	attempts := 0
	_, err := policy.ExecuteWithRetry(context.Background(), common.GetLogger(), func() (string, error) {
		attempts++
		return "", &models.FetchError{URL: "http://example.com", StatusCode: 500}
	})

	require.Error(t, err)
	assert.True(t, models.IsFetchError(err))
	assert.Equal(t, 3, attempts)
}

func TestExecuteWithRetry_ExtractionErrorNotRetried(t *testing.T) {
	policy := NewRetryPolicy(3, time.Millisecond)

	attempts := 0
	_, err := policy.ExecuteWithRetry(context.Background(), common.GetLogger(), func() (string, error) {
		attempts++
		return "", &models.ExtractionError{URL: "http://example.com", Reason: "missing title"}
	})

	require.Error(t, err)
	assert.True(t, models.IsExtractionError(err))
	assert.Equal(t, 1, attempts, "deterministic errors must fail immediately")
}

func TestCalculateBackoff_GrowsAndCaps(t *testing.T) {
	policy := NewRetryPolicy(10, time.Second)

	first := policy.CalculateBackoff(0)
	assert.InDelta(t, float64(time.Second), float64(first), float64(time.Second)*0.26)

	deep := policy.CalculateBackoff(9)
	assert.LessOrEqual(t, deep, time.Duration(float64(policy.MaxBackoff)*1.26))
}
