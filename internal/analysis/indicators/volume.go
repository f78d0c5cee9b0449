package indicators

import (
	"fmt"
)

// DefaultVolumePeriod is the window of the volume moving average.
const DefaultVolumePeriod = 20

// VolumeMA calculates a simple moving average over traded volume.
type VolumeMA struct {
	period int
}

// NewVolumeMA creates a new volume moving average indicator.
func NewVolumeMA(period int) *VolumeMA {
	return &VolumeMA{period: period}
}

func (v *VolumeMA) Name() string {
	return fmt.Sprintf("VolumeMA_%d", v.period)
}

func (v *VolumeMA) Period() int {
	return v.period
}

// Calculate returns an empty series when no volumes are supplied.
func (v *VolumeMA) Calculate(volumes []float64) Series {
	if volumes == nil {
		return emptySeries(0)
	}
	return SMA(volumes, v.period)
}
