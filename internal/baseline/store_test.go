package baseline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snarayanan1095/Wellnest/internal/models"
)

func set(household string, mean float64) *models.BaselineSet {
	return &models.BaselineSet{
		HouseholdID: household,
		Metrics: map[models.Metric]models.Baseline{
			models.MetricWakeTime: {
				HouseholdID: household,
				Metric:      models.MetricWakeTime,
				Mean:        mean,
				SampleCount: 7,
			},
		},
	}
}

func TestPublishAndGet(t *testing.T) {
	s := NewStore()
	assert.Nil(t, s.Get("house-1"))

	s.Publish(set("house-1", 420))

	got := s.Get("house-1")
	require.NotNil(t, got)
	wake, ok := got.Get(models.MetricWakeTime)
	require.True(t, ok)
	assert.Equal(t, 420.0, wake.Mean)
}

func TestPublish_ReplacesWholesale(t *testing.T) {
	s := NewStore()
	s.Publish(set("house-1", 420))
	old := s.Get("house-1")

	s.Publish(set("house-1", 450))

	fresh := s.Get("house-1")
	assert.NotSame(t, old, fresh)

	// The old snapshot a reader may still hold is untouched.
	oldWake, _ := old.Get(models.MetricWakeTime)
	assert.Equal(t, 420.0, oldWake.Mean)
}

func TestPublish_RejectsNilAndEmpty(t *testing.T) {
	s := NewStore()
	s.Publish(set("house-1", 420))

	s.Publish(nil)
	s.Publish(&models.BaselineSet{})

	require.NotNil(t, s.Get("house-1"), "invalid publish must not clear an existing snapshot")
	assert.Len(t, s.Households(), 1)
}

func TestHouseholds(t *testing.T) {
	s := NewStore()
	assert.Empty(t, s.Households())

	s.Publish(set("house-1", 420))
	s.Publish(set("house-2", 400))
	assert.ElementsMatch(t, []string{"house-1", "house-2"}, s.Households())
}
