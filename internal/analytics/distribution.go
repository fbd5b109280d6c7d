package analytics

import (
	"math"
	"sort"
)

// DefaultHistogramBins is the histogram resolution used when none is given.
const DefaultHistogramBins = 10

// calibrationBins is the fixed number of equal-width calibration bins.
const calibrationBins = 10

// HistogramBin counts scores in [Lower, Upper). The last bin is closed so a
// score of exactly 1.0 is counted.
type HistogramBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// ScoreDistribution summarizes risk scores. Every statistic is zero when
// Count is zero.
type ScoreDistribution struct {
	Histogram []HistogramBin `json:"histogram"`
	Count     int            `json:"count"`
	Mean      float64        `json:"mean"`
	Median    float64        `json:"median"`
	Std       float64        `json:"std"`
	Min       float64        `json:"min"`
	Max       float64        `json:"max"`
	Q25       float64        `json:"q25"`
	Q75       float64        `json:"q75"`
}

// Distribution computes summary statistics and a histogram over [0,1].
// Std is the population standard deviation; quantiles interpolate linearly
// between order statistics.
func Distribution(scores []float64, bins int) ScoreDistribution {
	if bins < 1 {
		bins = DefaultHistogramBins
	}
	d := ScoreDistribution{
		Count:     len(scores),
		Histogram: histogram(scores, bins),
	}
	if len(scores) == 0 {
		return d
	}

	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)

	var sum float64
	for _, s := range sorted {
		sum += s
	}
	d.Mean = sum / float64(len(sorted))

	var sq float64
	for _, s := range sorted {
		sq += (s - d.Mean) * (s - d.Mean)
	}
	d.Std = math.Sqrt(sq / float64(len(sorted)))

	d.Min = sorted[0]
	d.Max = sorted[len(sorted)-1]
	d.Median = Quantile(sorted, 0.5)
	d.Q25 = Quantile(sorted, 0.25)
	d.Q75 = Quantile(sorted, 0.75)
	return d
}

// Quantile returns the q-th quantile of an ascending slice using linear
// interpolation between the two nearest ranks. It returns 0 for an empty slice.
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

func histogram(scores []float64, bins int) []HistogramBin {
	out := make([]HistogramBin, bins)
	width := 1.0 / float64(bins)
	for i := range out {
		out[i].Lower = float64(i) * width
		out[i].Upper = float64(i+1) * width
	}
	out[bins-1].Upper = 1

	for _, s := range scores {
		out[binIndex(s, bins)].Count++
	}
	return out
}

// binIndex maps a score in [0,1] onto one of n equal-width bins. Out-of-range
// scores land in the nearest end bin.
func binIndex(score float64, n int) int {
	idx := int(math.Floor(score * float64(n)))
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}

// CalibrationBin compares mean predicted risk with the observed positive rate
// for one risk decile.
type CalibrationBin struct {
	Bin           int     `json:"bin"`
	Lower         float64 `json:"lower"`
	Upper         float64 `json:"upper"`
	MeanPredicted float64 `json:"mean_predicted"`
	MeanObserved  float64 `json:"mean_actual"`
	Count         int     `json:"count"`
}

// Calibration groups (score, label) pairs into fixed deciles over [0,1].
// Deciles with no members are omitted.
func Calibration(scores []float64, labels []bool) []CalibrationBin {
	type acc struct {
		predicted float64
		observed  int
		count     int
	}
	accs := make([]acc, calibrationBins)
	for i, s := range scores {
		b := binIndex(s, calibrationBins)
		accs[b].predicted += s
		accs[b].count++
		if i < len(labels) && labels[i] {
			accs[b].observed++
		}
	}

	out := make([]CalibrationBin, 0, calibrationBins)
	width := 1.0 / calibrationBins
	for i, a := range accs {
		if a.count == 0 {
			continue
		}
		out = append(out, CalibrationBin{
			Bin:           i,
			Lower:         float64(i) * width,
			Upper:         float64(i+1) * width,
			MeanPredicted: a.predicted / float64(a.count),
			MeanObserved:  float64(a.observed) / float64(a.count),
			Count:         a.count,
		})
	}
	return out
}
