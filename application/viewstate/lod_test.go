package viewstate

import (
	"testing"

	"neurotwin-backend/domain/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLODPolicy_Validation(t *testing.T) {
	_, err := NewLODPolicy("gaming", LODModeAuto)
	assert.Error(t, err)

	_, err = NewLODPolicy(DeviceClassLow, "frantic")
	assert.Error(t, err)

	policy, err := NewLODPolicy(DeviceClassHigh, LODModeHybrid)
	require.NoError(t, err)
	assert.Equal(t, DeviceClassHigh, policy.DeviceClass())
	assert.Equal(t, LODModeHybrid, policy.Mode())
}

func TestLODPolicy_AutoTier(t *testing.T) {
	cfg := config.DefaultDomainConfig()

	tests := []struct {
		name        string
		deviceClass DeviceClass
		regionCount int
		want        DetailTier
	}{
		{name: "low device always low", deviceClass: DeviceClassLow, regionCount: 10, want: DetailTierLow},
		{name: "large graph forces low", deviceClass: DeviceClassHigh, regionCount: 200, want: DetailTierLow},
		{name: "region count at limit stays medium", deviceClass: DeviceClassMedium, regionCount: 150, want: DetailTierMedium},
		{name: "high device small graph", deviceClass: DeviceClassHigh, regionCount: 50, want: DetailTierHigh},
		{name: "high device medium graph", deviceClass: DeviceClassHigh, regionCount: 51, want: DetailTierMedium},
		{name: "medium device small graph", deviceClass: DeviceClassMedium, regionCount: 30, want: DetailTierMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy, err := NewLODPolicy(tt.deviceClass, LODModeAuto)
			require.NoError(t, err)
			assert.Equal(t, tt.want, policy.Tier(tt.regionCount, cfg))
		})
	}
}

func TestLODPolicy_ManualOverride(t *testing.T) {
	policy, err := NewLODPolicy(DeviceClassLow, LODModeAuto)
	require.NoError(t, err)

	require.NoError(t, policy.ForceTier(DetailTierHigh))
	assert.Equal(t, LODModeManual, policy.Mode())
	// Manual wins even though the auto rule would say low
	assert.Equal(t, DetailTierHigh, policy.Tier(500, nil))

	assert.Error(t, policy.ForceTier("ultra"))

	policy.ClearOverride()
	assert.Equal(t, LODModeAuto, policy.Mode())
	assert.Equal(t, DetailTierLow, policy.Tier(500, nil))
}

func TestLODPolicy_HybridDegradation(t *testing.T) {
	policy, err := NewLODPolicy(DeviceClassHigh, LODModeHybrid)
	require.NoError(t, err)

	assert.Equal(t, DetailTierDynamic, policy.Tier(40, nil))

	policy.ReportPerformanceWarning()
	assert.Equal(t, DetailTierLow, policy.Tier(40, nil))

	// One-directional: repeated warnings and small graphs do not lift it
	policy.ReportPerformanceWarning()
	assert.Equal(t, DetailTierLow, policy.Tier(5, nil))

	policy.Reset()
	assert.Equal(t, DetailTierDynamic, policy.Tier(40, nil))
}

func TestLODPolicy_WarningIgnoredOutsideHybrid(t *testing.T) {
	policy, err := NewLODPolicy(DeviceClassHigh, LODModeAuto)
	require.NoError(t, err)
	rev := policy.Revision()

	policy.ReportPerformanceWarning()

	assert.Equal(t, rev, policy.Revision())
	assert.Equal(t, DetailTierHigh, policy.Tier(10, nil))
}

func TestLODPolicy_Descriptors(t *testing.T) {
	policy, err := NewLODPolicy(DeviceClassHigh, LODModeHybrid)
	require.NoError(t, err)

	low := policy.Descriptor(DetailTierLow, 0, nil)
	assert.False(t, low.ShowLabels)
	assert.Equal(t, 8, low.GeometrySegments)
	assert.Equal(t, 0.2, low.EffectDensity)

	medium := policy.Descriptor(DetailTierMedium, 0, nil)
	assert.True(t, medium.ShowLabels)
	assert.Equal(t, 16, medium.GeometrySegments)

	high := policy.Descriptor(DetailTierHigh, 0, nil)
	assert.Equal(t, 32, high.GeometrySegments)
	assert.Equal(t, 1.0, high.EffectDensity)

	// Dynamic resolves through the auto rule: high device, small graph
	dynamic := policy.Descriptor(DetailTierDynamic, 40, nil)
	assert.Equal(t, high, dynamic)

	// and a large graph resolves to the low budget
	dynamicLarge := policy.Descriptor(DetailTierDynamic, 400, nil)
	assert.Equal(t, low, dynamicLarge)
}

func TestLODPolicy_SetDeviceClass(t *testing.T) {
	policy, err := NewLODPolicy(DeviceClassMedium, LODModeAuto)
	require.NoError(t, err)
	rev := policy.Revision()

	require.NoError(t, policy.SetDeviceClass(DeviceClassLow))
	assert.Equal(t, rev+1, policy.Revision())
	assert.Equal(t, DetailTierLow, policy.Tier(10, nil))

	// Same class again is a no-op
	require.NoError(t, policy.SetDeviceClass(DeviceClassLow))
	assert.Equal(t, rev+1, policy.Revision())

	assert.Error(t, policy.SetDeviceClass("quantum"))
}

func TestLODPolicy_SetMode(t *testing.T) {
	policy, err := NewLODPolicy(DeviceClassHigh, LODModeHybrid)
	require.NoError(t, err)
	policy.ReportPerformanceWarning()

	// Leaving hybrid lifts the degradation
	require.NoError(t, policy.SetMode(LODModeAuto))
	require.NoError(t, policy.SetMode(LODModeHybrid))
	assert.Equal(t, DetailTierDynamic, policy.Tier(40, nil))

	require.NoError(t, policy.SetMode(LODModeManual))
	require.NoError(t, policy.ForceTier(DetailTierLow))
	require.NoError(t, policy.SetMode(LODModeAuto))
	// Leaving manual clears the forced tier
	assert.Equal(t, DetailTierHigh, policy.Tier(10, nil))

	assert.Error(t, policy.SetMode("improvised"))
}
