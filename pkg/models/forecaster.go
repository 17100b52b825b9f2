package models

// TargetSupport describes which target shapes a forecaster accepts
type TargetSupport string

const (
	TargetUnivariate   TargetSupport = "univariate"
	TargetMultivariate TargetSupport = "multivariate"
	TargetBoth         TargetSupport = "both"
)

// Capabilities is the explicit capability record of a forecaster
type Capabilities struct {
	Target               TargetSupport `json:"target"`
	RequiresExogenous    bool          `json:"requires_exogenous"`
	RequiresHorizonAtFit bool          `json:"requires_horizon_at_fit"`
	MinTrainLength       int           `json:"min_train_length"`
}

// SupportsUnivariate reports whether a single-column target is accepted
func (c Capabilities) SupportsUnivariate() bool {
	return c.Target == TargetUnivariate || c.Target == TargetBoth
}

// ForecasterDescriptor names a forecaster and its capabilities
type ForecasterDescriptor struct {
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Capabilities Capabilities `json:"capabilities"`
}
