package generators

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomWalkDefaults(t *testing.T) {
	gen, err := NewRandomWalkGenerator(nil, logrus.New())
	require.NoError(t, err)

	series, err := gen.Generate(context.Background())
	require.NoError(t, err)

	require.Equal(t, 200, series.Len())
	assert.Equal(t, time.Date(2020, 1, 5, 0, 0, 0, 0, time.UTC), series.Timestamps[0])
	assert.Equal(t, 7*24*time.Hour, series.Period)

	for i := 1; i < series.Len(); i++ {
		assert.Equal(t, 7*24*time.Hour, series.Timestamps[i].Sub(series.Timestamps[i-1]))
		assert.Equal(t, time.Sunday, series.Timestamps[i].Weekday())
	}
	for _, v := range series.Values {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestRandomWalkDeterministic(t *testing.T) {
	first, err := NewRandomWalkGenerator(nil, logrus.New())
	require.NoError(t, err)
	second, err := NewRandomWalkGenerator(nil, logrus.New())
	require.NoError(t, err)

	a, err := first.Generate(context.Background())
	require.NoError(t, err)
	b, err := second.Generate(context.Background())
	require.NoError(t, err)
	again, err := first.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, a.Values, b.Values)
	assert.Equal(t, a.Values, again.Values)
	assert.Equal(t, a.Timestamps, b.Timestamps)
}

func TestRandomWalkSeedChangesValues(t *testing.T) {
	config := DefaultRandomWalkConfig()
	config.Seed = 7
	other, err := NewRandomWalkGenerator(config, logrus.New())
	require.NoError(t, err)
	def, err := NewRandomWalkGenerator(nil, logrus.New())
	require.NoError(t, err)

	a, err := other.Generate(context.Background())
	require.NoError(t, err)
	b, err := def.Generate(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, a.Values, b.Values)
}

func TestRandomWalkZeroScaleIsFlat(t *testing.T) {
	config := DefaultRandomWalkConfig()
	config.Scale = 0
	config.Length = 10
	gen, err := NewRandomWalkGenerator(config, logrus.New())
	require.NoError(t, err)

	series, err := gen.Generate(context.Background())
	require.NoError(t, err)
	for _, v := range series.Values {
		assert.Equal(t, 100.0, v)
	}
}

func TestRandomWalkInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *RandomWalkConfig)
	}{
		{"zero length", func(c *RandomWalkConfig) { c.Length = 0 }},
		{"negative scale", func(c *RandomWalkConfig) { c.Scale = -1 }},
		{"bad start", func(c *RandomWalkConfig) { c.Start = "05/01/2020" }},
		{"start not sunday", func(c *RandomWalkConfig) { c.Start = "2020-01-06" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultRandomWalkConfig()
			tt.mutate(config)
			_, err := NewRandomWalkGenerator(config, logrus.New())
			assert.Error(t, err)
		})
	}
}

func TestRandomWalkCancelled(t *testing.T) {
	gen, err := NewRandomWalkGenerator(nil, logrus.New())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = gen.Generate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
