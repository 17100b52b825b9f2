package forecasters

import (
	"fmt"
	"strings"

	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/interfaces"
	"github.com/inferloop/tsforecast/pkg/models"
)

// Adapter narrows a forecaster factory to the forecasters that can run on a
// single series without exogenous input. Eligibility is advisory: an eligible
// forecaster may still fail to fit.
type Adapter struct {
	factory interfaces.ForecasterFactory
}

// NewAdapter creates an adapter over factory
func NewAdapter(factory interfaces.ForecasterFactory) *Adapter {
	return &Adapter{factory: factory}
}

// Eligible reports whether a descriptor can be offered for univariate comparison
func Eligible(d models.ForecasterDescriptor) bool {
	return d.Capabilities.SupportsUnivariate() && !d.Capabilities.RequiresExogenous
}

// List returns the eligible descriptors sorted by name
func (a *Adapter) List() []models.ForecasterDescriptor {
	var out []models.ForecasterDescriptor
	for _, d := range a.factory.Describe() {
		if Eligible(d) {
			out = append(out, d)
		}
	}
	return out
}

// All returns every registered descriptor, eligible or not
func (a *Adapter) All() []models.ForecasterDescriptor {
	return a.factory.Describe()
}

// Names returns the eligible forecaster names sorted alphabetically
func (a *Adapter) Names() []string {
	list := a.List()
	names := make([]string, len(list))
	for i, d := range list {
		names[i] = d.Name
	}
	return names
}

// Resolve checks a user selection against the eligible set. Order is kept and
// repeated names are dropped.
func (a *Adapter) Resolve(selection []string) ([]models.ForecasterDescriptor, error) {
	eligible := make(map[string]models.ForecasterDescriptor)
	for _, d := range a.List() {
		eligible[d.Name] = d
	}

	seen := make(map[string]bool)
	var out []models.ForecasterDescriptor
	var unknown []string
	for _, raw := range selection {
		name := strings.TrimSpace(raw)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		d, ok := eligible[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		out = append(out, d)
	}

	if len(unknown) > 0 {
		return nil, errors.NewInputError(errors.CodeUnknownForecaster,
			fmt.Sprintf("unknown or ineligible forecasters: %s", strings.Join(unknown, ", "))).
			WithDetails("available: " + strings.Join(a.Names(), ", "))
	}
	if len(out) == 0 {
		return nil, errors.WrapError(errors.ErrNoForecasters, errors.ErrorTypeInput, errors.CodeNoForecasters,
			"select at least one forecaster")
	}

	return out, nil
}

// Create instantiates a forecaster with default configuration
func (a *Adapter) Create(name string) (interfaces.Forecaster, error) {
	return a.factory.CreateForecaster(name)
}
