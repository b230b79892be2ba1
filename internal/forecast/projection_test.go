package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplypulse/pkg/contracts/domain"
)

func TestProjectLinearSeries(t *testing.T) {
	ds := newDataset(domain.KindEquipment,
		monthlyRecords("CAT 320D", month(2024, time.January), 1, 2, 3),
	)

	p := Project(ds, domain.MeasureAmount, DefaultProjectionOptions())
	require.NotNil(t, p)
	assert.InDelta(t, 10.0, p.Slope, 1e-9)
	assert.InDelta(t, 10.0, p.Intercept, 1e-9)
	assert.InDelta(t, 1.0, p.RSquared, 1e-9)
	assert.Len(t, p.Historical, 3)

	require.Len(t, p.Points, 3)
	assert.Equal(t, month(2024, time.April), p.Points[0].Period)
	assert.InDelta(t, 40.0, p.Points[0].Value, 1e-9)
	assert.InDelta(t, 28.0, p.Points[0].Lower, 1e-9)
	assert.InDelta(t, 52.0, p.Points[0].Upper, 1e-9)
	assert.InDelta(t, 60.0, p.Points[2].Value, 1e-9)

	assert.Equal(t, 3, p.Recent.Months)
	assert.InDelta(t, 20.0, p.Recent.Mean, 1e-9)
	assert.InDelta(t, 10.0, p.Recent.Min, 1e-9)
	assert.InDelta(t, 30.0, p.Recent.Max, 1e-9)
}

func TestProjectRecentEstimateUsesLastMonths(t *testing.T) {
	ds := newDataset(domain.KindEquipment,
		monthlyRecords("CAT 320D", month(2024, time.January), 9, 1, 4, 2, 6),
	)

	p := Project(ds, domain.MeasureAmount, DefaultProjectionOptions())
	require.NotNil(t, p)
	assert.Equal(t, domain.RecentEstimate{Months: 3, Mean: 40, Min: 20, Max: 60}, p.Recent)

	p = Project(ds, domain.MeasureAmount, ProjectionOptions{MinHistory: 3, RecentMonths: 12})
	require.NotNil(t, p)
	assert.Equal(t, 5, p.Recent.Months)
	assert.InDelta(t, 90.0, p.Recent.Max, 1e-9)
	assert.InDelta(t, 10.0, p.Recent.Min, 1e-9)
}

func TestProjectClampsAtZero(t *testing.T) {
	ds := newDataset(domain.KindEquipment,
		monthlyRecords("CAT 320D", month(2024, time.January), 3, 2, 1),
	)

	p := Project(ds, domain.MeasureAmount, DefaultProjectionOptions())
	require.NotNil(t, p)
	for _, pt := range p.Points {
		assert.GreaterOrEqual(t, pt.Value, 0.0)
		assert.GreaterOrEqual(t, pt.Lower, 0.0)
	}
	assert.InDelta(t, 0.0, p.Points[0].Value, 1e-9)
}

func TestProjectConstantAndShortSeries(t *testing.T) {
	flat := newDataset(domain.KindEquipment,
		monthlyRecords("CAT 320D", month(2024, time.January), 5, 5, 5, 5),
	)
	p := Project(flat, domain.MeasureAmount, DefaultProjectionOptions())
	require.NotNil(t, p)
	assert.False(t, math.IsNaN(p.RSquared))
	assert.InDelta(t, 50.0, p.Points[0].Value, 1e-9)

	short := newDataset(domain.KindEquipment,
		monthlyRecords("CAT 320D", month(2024, time.January), 5, 6),
	)
	assert.Nil(t, Project(short, domain.MeasureAmount, DefaultProjectionOptions()))
}
