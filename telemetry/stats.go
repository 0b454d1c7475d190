package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Smoke state at window end
	DensityMass     float64 `csv:"density_mass"`
	CenterX         float64 `csv:"com_x"`
	CenterY         float64 `csv:"com_y"`
	CenterZ         float64 `csv:"com_z"`
	MaxDensity      float64 `csv:"max_density"`
	MaxTemperature  float64 `csv:"max_temperature"`
	MeanTemperature float64 `csv:"mean_temperature"`
	MaxSpeed        float64 `csv:"max_speed"`
	MaxDivergence   float64 `csv:"max_divergence"`

	// Rise of the centre of mass over the window, per simulated second
	RiseRate float64 `csv:"rise_rate"`

	// Mass distribution over the ticks of the window
	MassMean float64 `csv:"mass_mean"`
	MassStd  float64 `csv:"mass_std"`
	MassP10  float64 `csv:"mass_p10"`
	MassP50  float64 `csv:"mass_p50"`
	MassP90  float64 `csv:"mass_p90"`

	// Speed distribution over the ticks of the window
	SpeedMean float64 `csv:"speed_mean"`
	SpeedP90  float64 `csv:"speed_p90"`

	// Events during window
	Bursts          int `csv:"bursts"`
	ObstacleChanges int `csv:"obstacle_changes"`
	Resets          int `csv:"resets"`
	Resizes         int `csv:"resizes"`
	Injections      int `csv:"injections"`

	// Dispatcher work during window
	Dispatches int64 `csv:"dispatches"`
	Voxels     int64 `csv:"voxels"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeDistribution calculates mean, population std, and percentiles.
func ComputeDistribution(values []float64) (mean, std, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0, 0
	}

	mean, std = stat.PopMeanStdDev(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, std, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Float64("density_mass", s.DensityMass),
		slog.Float64("com_y", s.CenterY),
		slog.Float64("rise_rate", s.RiseRate),
		slog.Float64("max_temperature", s.MaxTemperature),
		slog.Float64("max_speed", s.MaxSpeed),
		slog.Float64("max_divergence", s.MaxDivergence),
		slog.Float64("mass_mean", s.MassMean),
		slog.Float64("mass_std", s.MassStd),
		slog.Int("bursts", s.Bursts),
		slog.Int("injections", s.Injections),
		slog.Int64("dispatches", s.Dispatches),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"density_mass", s.DensityMass,
		"com_x", s.CenterX,
		"com_y", s.CenterY,
		"com_z", s.CenterZ,
		"rise_rate", s.RiseRate,
		"max_density", s.MaxDensity,
		"max_temperature", s.MaxTemperature,
		"mean_temperature", s.MeanTemperature,
		"max_speed", s.MaxSpeed,
		"max_divergence", s.MaxDivergence,
		"mass_p50", s.MassP50,
		"speed_p90", s.SpeedP90,
		"bursts", s.Bursts,
		"obstacle_changes", s.ObstacleChanges,
		"resets", s.Resets,
		"resizes", s.Resizes,
		"injections", s.Injections,
		"dispatches", s.Dispatches,
		"voxels", s.Voxels,
	)
}
