package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// HealthStatus represents the health status
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// HealthConfig configures health checks
type HealthConfig struct {
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// HealthCheck defines a health check
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
	Critical() bool
}

// HealthResult represents the result of a health check
type HealthResult struct {
	Status   HealthStatus  `json:"status"`
	Message  string        `json:"message"`
	Critical bool          `json:"critical"`
	Duration time.Duration `json:"duration"`
}

// SystemStatus represents overall health
type SystemStatus struct {
	OverallStatus HealthStatus            `json:"status"`
	Checks        map[string]HealthResult `json:"checks"`
	Uptime        string                  `json:"uptime"`
	CheckedAt     time.Time               `json:"checked_at"`
}

// HealthMonitor runs registered checks on demand
type HealthMonitor struct {
	logger    *logrus.Logger
	config    *HealthConfig
	mu        sync.RWMutex
	checks    map[string]HealthCheck
	startTime time.Time
}

// BasicHealthCheck adapts a function to HealthCheck
type BasicHealthCheck struct {
	name      string
	checkFunc func(ctx context.Context) error
	critical  bool
}

// NewHealthMonitor creates a new health monitor
func NewHealthMonitor(config *HealthConfig, logger *logrus.Logger) *HealthMonitor {
	if config == nil {
		config = &HealthConfig{}
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}

	if logger == nil {
		logger = logrus.New()
	}

	return &HealthMonitor{
		logger:    logger,
		config:    config,
		checks:    make(map[string]HealthCheck),
		startTime: time.Now(),
	}
}

// RegisterCheck adds or replaces a check
func (hm *HealthMonitor) RegisterCheck(check HealthCheck) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	hm.checks[check.Name()] = check
}

// Check runs every registered check. A failing critical check makes the system
// unhealthy; any other failure degrades it.
func (hm *HealthMonitor) Check(ctx context.Context) *SystemStatus {
	hm.mu.RLock()
	names := make([]string, 0, len(hm.checks))
	for name := range hm.checks {
		names = append(names, name)
	}
	checks := hm.checks
	hm.mu.RUnlock()
	sort.Strings(names)

	status := &SystemStatus{
		OverallStatus: StatusHealthy,
		Checks:        make(map[string]HealthResult, len(names)),
		Uptime:        time.Since(hm.startTime).Round(time.Second).String(),
		CheckedAt:     time.Now().UTC(),
	}

	for _, name := range names {
		check := checks[name]
		result := hm.execute(ctx, check)
		status.Checks[name] = result

		if result.Status == StatusHealthy {
			continue
		}
		if check.Critical() {
			status.OverallStatus = StatusUnhealthy
		} else if status.OverallStatus == StatusHealthy {
			status.OverallStatus = StatusDegraded
		}
	}

	return status
}

func (hm *HealthMonitor) execute(ctx context.Context, check HealthCheck) HealthResult {
	ctx, cancel := context.WithTimeout(ctx, hm.config.Timeout)
	defer cancel()

	start := time.Now()
	err := check.Check(ctx)
	result := HealthResult{
		Status:   StatusHealthy,
		Message:  "OK",
		Critical: check.Critical(),
		Duration: time.Since(start),
	}
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = err.Error()

		hm.logger.WithFields(logrus.Fields{
			"check":    check.Name(),
			"critical": check.Critical(),
			"error":    err.Error(),
		}).Warn("Health check failed")
	}
	return result
}

// NewBasicHealthCheck creates a new basic health check
func NewBasicHealthCheck(name string, checkFunc func(ctx context.Context) error, critical bool) *BasicHealthCheck {
	return &BasicHealthCheck{
		name:      name,
		checkFunc: checkFunc,
		critical:  critical,
	}
}

// Name returns the check name
func (bhc *BasicHealthCheck) Name() string {
	return bhc.name
}

// Check executes the health check
func (bhc *BasicHealthCheck) Check(ctx context.Context) error {
	return bhc.checkFunc(ctx)
}

// Critical returns whether this check is critical
func (bhc *BasicHealthCheck) Critical() bool {
	return bhc.critical
}
