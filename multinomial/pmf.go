package multinomial

import "math"

// LogPMF returns the natural log of the multinomial probability of the
// counts k, with n = sum(k) trials, under probabilities p. Mismatched
// lengths yield NaN; a negative count yields -Inf.
func LogPMF(k []int, p []float64) float64 {
	if len(k) != len(p) {
		return math.NaN()
	}
	n := 0
	var lp float64
	for i, ki := range k {
		if ki < 0 {
			return math.Inf(-1)
		}
		n += ki
		if ki == 0 {
			continue
		}
		lp += float64(ki)*math.Log(p[i]) - lgamma(float64(ki+1))
	}
	return lp + lgamma(float64(n+1))
}

// PMF is exp(LogPMF(k, p)).
func PMF(k []int, p []float64) float64 {
	return math.Exp(LogPMF(k, p))
}

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}
