package evaluate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/core"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/waves"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func det(region string, t time.Time) core.Detection {
	return core.Detection{Region: region, Week: t, Kind: core.KindSpikeUp}
}

func TestEvaluate(t *testing.T) {
	catalog := waves.Brazil()

	tests := []struct {
		name       string
		detections []core.Detection
		tolerance  time.Duration
		want       core.Evaluation
	}{
		{
			name: "no detections",
			want: core.Evaluation{WavesTotal: 4},
		},
		{
			name: "every wave hit once",
			detections: []core.Detection{
				det("BR", day(2020, 7, 5)),
				det("BR", day(2021, 4, 4)),
				det("BR", day(2022, 1, 30)),
				det("BR", day(2022, 7, 3)),
			},
			want: core.Evaluation{Detections: 4, Aligned: 4, WavesHit: 4, WavesTotal: 4, Precision: 1, Recall: 1, F1: 1},
		},
		{
			name: "half aligned two waves",
			detections: []core.Detection{
				det("BR", day(2020, 7, 5)),
				det("BR", day(2020, 7, 12)),
				det("BR", day(2021, 4, 4)),
				det("BR", day(2021, 10, 3)),
				det("BR", day(2023, 1, 1)),
				det("BR", day(2019, 1, 6)),
			},
			want: core.Evaluation{
				Detections: 6, Aligned: 3, WavesHit: 2, WavesTotal: 4,
				Precision: 0.5, Recall: 0.5, F1: 0.5,
			},
		},
		{
			name:       "tolerance widens windows",
			detections: []core.Detection{det("BR", day(2021, 12, 19))},
			tolerance:  Week,
			want: core.Evaluation{
				Detections: 1, Aligned: 1, WavesHit: 1, WavesTotal: 4,
				Precision: 1, Recall: 0.25, F1: 0.4,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.detections, catalog, tt.tolerance)
			assert.Equal(t, tt.want.Detections, got.Detections)
			assert.Equal(t, tt.want.Aligned, got.Aligned)
			assert.Equal(t, tt.want.WavesHit, got.WavesHit)
			assert.Equal(t, tt.want.WavesTotal, got.WavesTotal)
			assert.InDelta(t, tt.want.Precision, got.Precision, 1e-12)
			assert.InDelta(t, tt.want.Recall, got.Recall, 1e-12)
			assert.InDelta(t, tt.want.F1, got.F1, 1e-12)
		})
	}
}

func TestByRegion(t *testing.T) {
	detections := []core.Detection{
		det("SP", day(2020, 7, 5)),
		det("AM", day(2021, 1, 17)),
		det("AM", day(2021, 10, 3)),
	}

	evals := ByRegion(detections, []string{"AM", "RJ", "SP"}, waves.Brazil(), 0)
	require.Len(t, evals, 4)

	assert.Equal(t, "AM", evals[0].Region)
	assert.Equal(t, 2, evals[0].Detections)
	assert.Equal(t, 1, evals[0].Aligned)

	assert.Equal(t, "RJ", evals[1].Region)
	assert.Zero(t, evals[1].Detections)
	assert.Zero(t, evals[1].F1)

	assert.Equal(t, "SP", evals[2].Region)

	pooled, ok := Pooled(evals)
	require.True(t, ok)
	assert.Equal(t, 3, pooled.Detections)
	assert.Equal(t, 2, pooled.Aligned)
	assert.Equal(t, 2, pooled.WavesHit)
}

func TestPooled_Missing(t *testing.T) {
	_, ok := Pooled([]core.Evaluation{{Region: "SP"}})
	assert.False(t, ok)
}
