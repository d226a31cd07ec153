package bench

import (
	"math"
	"time"
)

// Stats object helps track timing stats.
type Stats struct {
	Min            time.Duration `json:"min"`
	Max            time.Duration `json:"max"`
	Mean           time.Duration `json:"mean"`
	StdDev         time.Duration `json:"stddev"`
	sumSquareDelta float64
	Total          time.Duration   `json:"total-time"`
	Num            int64           `json:"num"`
	All            []time.Duration `json:"all,omitempty"`
	SaveAll        bool            `json:"-"`
}

// NewStats gets a Stats object.
func NewStats() *Stats {
	return &Stats{
		Min: 1<<63 - 1,
		All: make([]time.Duration, 0),
	}
}

// Add adds a new time to the stats object.
func (s *Stats) Add(td time.Duration) {
	if s.SaveAll {
		s.All = append(s.All, td)
	}
	s.Num += 1
	s.Total += td
	if td < s.Min {
		s.Min = td
	}
	if td > s.Max {
		s.Max = td
	}

	// online variance calculation
	// https://en.wikipedia.org/wiki/Algorithms_for_calculating_variance#Online_algorithm
	delta := td - s.Mean
	s.Mean += delta / time.Duration(s.Num)
	s.sumSquareDelta += float64(delta) * float64(td-s.Mean)
	s.StdDev = time.Duration(stddev(s.sumSquareDelta, s.Num))
}

// Combine merges other into s.
func (s *Stats) Combine(other *Stats) {
	if other.Num == 0 {
		return
	}
	if other.Min < s.Min {
		s.Min = other.Min
	}
	if other.Max > s.Max {
		s.Max = other.Max
	}
	s.sumSquareDelta = combineSquares(s.sumSquareDelta, float64(s.Mean), s.Num,
		other.sumSquareDelta, float64(other.Mean), other.Num)
	s.Total += other.Total
	s.Num += other.Num
	s.Mean = s.Total / time.Duration(s.Num)
	s.StdDev = time.Duration(stddev(s.sumSquareDelta, s.Num))
	s.All = append(s.All, other.All...)
}

// NumStats tracks the same things as Stats for plain counts.
type NumStats struct {
	sumSquareDelta float64

	NumZero int64   `json:"num-zero"`
	Min     int64   `json:"min"`
	Max     int64   `json:"max"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"stddev"`
	Total   int64   `json:"total"`
	Num     int64   `json:"num"`
	All     []int64 `json:"all,omitempty"`
	SaveAll bool    `json:"-"`
}

// NewNumStats gets a NumStats object.
func NewNumStats() *NumStats {
	return &NumStats{
		Min: 1<<63 - 1,
		All: make([]int64, 0),
	}
}

// Add adds a new value to the stats object.
func (s *NumStats) Add(v int64) {
	if s.SaveAll {
		s.All = append(s.All, v)
	}
	if v == 0 {
		s.NumZero++
	}
	s.Num += 1
	s.Total += v
	if v < s.Min {
		s.Min = v
	}
	if v > s.Max {
		s.Max = v
	}

	delta := float64(v) - s.Mean
	s.Mean += delta / float64(s.Num)
	s.sumSquareDelta += delta * (float64(v) - s.Mean)
	s.StdDev = stddev(s.sumSquareDelta, s.Num)
}

// Combine merges other into s.
func (s *NumStats) Combine(other *NumStats) {
	if other.Num == 0 {
		return
	}
	if other.Min < s.Min {
		s.Min = other.Min
	}
	if other.Max > s.Max {
		s.Max = other.Max
	}
	s.sumSquareDelta = combineSquares(s.sumSquareDelta, s.Mean, s.Num,
		other.sumSquareDelta, other.Mean, other.Num)
	s.NumZero += other.NumZero
	s.Total += other.Total
	s.Num += other.Num
	s.Mean = float64(s.Total) / float64(s.Num)
	s.StdDev = stddev(s.sumSquareDelta, s.Num)
	s.All = append(s.All, other.All...)
}

// combineSquares merges the sums of squared deviations of two samples.
// https://en.wikipedia.org/wiki/Algorithms_for_calculating_variance#Parallel_algorithm
func combineSquares(ssA, meanA float64, numA int64, ssB, meanB float64, numB int64) float64 {
	if numA == 0 {
		return ssB
	}
	delta := meanB - meanA
	n := float64(numA + numB)
	return ssA + ssB + delta*delta*float64(numA)*float64(numB)/n
}

// stddev is the population standard deviation.
func stddev(sumSquareDelta float64, num int64) float64 {
	if num < 1 {
		return 0
	}
	return math.Sqrt(sumSquareDelta / float64(num))
}
