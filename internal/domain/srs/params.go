package srs

// StandardIntervals is the built-in forgetting curve, in minutes:
// 5m, 30m, 12h, 1d, 2d, 4d, 7d, 15d.
var StandardIntervals = []int{5, 30, 720, 1440, 2880, 5760, 10080, 21600}

// Params defines the configurable parameters of the curve engine
type Params struct {
	// StandardIntervals are used when an item has no usable curve.
	StandardIntervals []int

	// FallbackFirstMinutes schedules the first review when an interval list is empty.
	FallbackFirstMinutes int

	// MaxPostponeMinutes bounds a single postpone.
	MaxPostponeMinutes int
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance
type ParamsConfig struct {
	StandardIntervals    []int
	FallbackFirstMinutes int
	MaxPostponeMinutes   int
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		StandardIntervals:    append([]int(nil), StandardIntervals...),
		FallbackFirstMinutes: 5,
		MaxPostponeMinutes:   30 * 24 * 60,
	}
}

// NewParams creates a new Params instance, overriding defaults with every
// non-zero field of config.
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if len(config.StandardIntervals) > 0 {
		params.StandardIntervals = append([]int(nil), config.StandardIntervals...)
	}
	if config.FallbackFirstMinutes > 0 {
		params.FallbackFirstMinutes = config.FallbackFirstMinutes
	}
	if config.MaxPostponeMinutes > 0 {
		params.MaxPostponeMinutes = config.MaxPostponeMinutes
	}

	return params
}
