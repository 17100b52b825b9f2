package health

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestHealthMonitorStatuses(t *testing.T) {
	ok := func(ctx context.Context) error { return nil }
	fail := func(ctx context.Context) error { return errors.New("down") }

	tests := []struct {
		name   string
		checks []HealthCheck
		want   HealthStatus
	}{
		{"no checks", nil, StatusHealthy},
		{"all ok", []HealthCheck{NewBasicHealthCheck("registry", ok, true)}, StatusHealthy},
		{"optional down", []HealthCheck{
			NewBasicHealthCheck("registry", ok, true),
			NewBasicHealthCheck("redis", fail, false),
		}, StatusDegraded},
		{"critical down", []HealthCheck{
			NewBasicHealthCheck("registry", fail, true),
			NewBasicHealthCheck("redis", fail, false),
		}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hm := NewHealthMonitor(nil, logrus.New())
			for _, c := range tt.checks {
				hm.RegisterCheck(c)
			}

			status := hm.Check(context.Background())
			assert.Equal(t, tt.want, status.OverallStatus)
			assert.Len(t, status.Checks, len(tt.checks))
		})
	}
}

func TestHealthResultMessage(t *testing.T) {
	hm := NewHealthMonitor(nil, logrus.New())
	hm.RegisterCheck(NewBasicHealthCheck("redis", func(ctx context.Context) error { return errors.New("refused") }, false))

	status := hm.Check(context.Background())
	assert.Equal(t, "refused", status.Checks["redis"].Message)
	assert.Equal(t, StatusUnhealthy, status.Checks["redis"].Status)
	assert.False(t, status.Checks["redis"].Critical)
}
