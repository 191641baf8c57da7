package geofence

// Params defines a dwell verification target: stay within RadiusM of the
// target coordinate for at least MinDurationMin continuous minutes.
type Params struct {
	TargetLat      float64 `json:"target_lat"`
	TargetLng      float64 `json:"target_lng"`
	RadiusM        float64 `json:"radius_m"`
	MinDurationMin int     `json:"min_duration_min"`
	Label          string  `json:"label"`
}

const (
	maxRadiusM        = 1000
	maxDurationMin    = 480
)

// Validate returns human-readable problems with the params. An empty slice
// means the params are usable; validation produces no side effects.
func (p Params) Validate() []string {
	var errs []string
	if p.RadiusM <= 0 {
		errs = append(errs, "Geofence radius must be greater than 0")
	} else if p.RadiusM > maxRadiusM {
		errs = append(errs, "Geofence radius must be at most 1000 meters")
	}
	if p.MinDurationMin <= 0 {
		errs = append(errs, "Minimum duration must be greater than 0")
	} else if p.MinDurationMin > maxDurationMin {
		errs = append(errs, "Minimum duration must be at most 480 minutes")
	}
	if p.TargetLat < -90 || p.TargetLat > 90 {
		errs = append(errs, "Latitude must be between -90 and 90")
	}
	if p.TargetLng < -180 || p.TargetLng > 180 {
		errs = append(errs, "Longitude must be between -180 and 180")
	}
	return errs
}

func (p Params) requiredDwellSec() float64 {
	return float64(p.MinDurationMin) * 60
}
