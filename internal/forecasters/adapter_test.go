package forecasters

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/interfaces"
	"github.com/inferloop/tsforecast/pkg/models"
)

type stubForecaster struct {
	descriptor models.ForecasterDescriptor
}

func (s *stubForecaster) Name() string                            { return s.descriptor.Name }
func (s *stubForecaster) Descriptor() models.ForecasterDescriptor { return s.descriptor }
func (s *stubForecaster) Fit(context.Context, *models.Series, *models.ForecastHorizon) error {
	return nil
}
func (s *stubForecaster) Predict(_ context.Context, fh *models.ForecastHorizon) ([]float64, error) {
	return make([]float64, fh.Len()), nil
}

func registerStub(t *testing.T, r *Registry, name string, caps models.Capabilities) {
	t.Helper()
	d := models.ForecasterDescriptor{Name: name, Capabilities: caps}
	require.NoError(t, r.RegisterForecaster(d, func() interfaces.Forecaster {
		return &stubForecaster{descriptor: d}
	}))
}

func mixedRegistry(t *testing.T) *Registry {
	r := NewEmptyRegistry(logrus.New())
	registerStub(t, r, "zeta", models.Capabilities{Target: models.TargetUnivariate})
	registerStub(t, r, "alpha", models.Capabilities{Target: models.TargetBoth})
	registerStub(t, r, "vector", models.Capabilities{Target: models.TargetMultivariate})
	registerStub(t, r, "exog", models.Capabilities{Target: models.TargetUnivariate, RequiresExogenous: true})
	registerStub(t, r, "beta", models.Capabilities{Target: models.TargetUnivariate, RequiresHorizonAtFit: true})
	return r
}

func TestAdapterFiltersAndSorts(t *testing.T) {
	a := NewAdapter(mixedRegistry(t))

	first := a.Names()
	assert.Equal(t, []string{"alpha", "beta", "zeta"}, first)
	assert.Equal(t, first, a.Names())

	for _, d := range a.List() {
		assert.True(t, Eligible(d))
	}

	assert.Len(t, a.All(), 5)
}

func TestAdapterResolve(t *testing.T) {
	a := NewAdapter(mixedRegistry(t))

	tests := []struct {
		name      string
		selection []string
		want      []string
		wantErr   error
	}{
		{name: "keeps selection order", selection: []string{"zeta", "alpha"}, want: []string{"zeta", "alpha"}},
		{name: "drops repeats", selection: []string{"beta", " beta", "alpha", "beta"}, want: []string{"beta", "alpha"}},
		{name: "rejects ineligible", selection: []string{"alpha", "vector"}},
		{name: "rejects unknown", selection: []string{"prophet"}},
		{name: "requires a selection", selection: nil, wantErr: errors.ErrNoForecasters},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Resolve(tt.selection)
			if tt.want == nil {
				require.Error(t, err)
				assert.Equal(t, errors.ErrorTypeInput, errors.TypeOf(err))
				if tt.wantErr != nil {
					assert.True(t, errors.Is(err, tt.wantErr))
				}
				return
			}
			require.NoError(t, err)
			names := make([]string, len(got))
			for i, d := range got {
				names[i] = d.Name
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestAdapterOverBuiltins(t *testing.T) {
	a := NewAdapter(NewRegistry(nil, logrus.New()))
	assert.Len(t, a.List(), 13)

	f, err := a.Create("naive")
	require.NoError(t, err)
	assert.Equal(t, "naive", f.Name())
}
