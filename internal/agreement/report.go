package agreement

import "math"

// Report is the agreement summary of one selection stage.
type Report struct {
	Level  Level     `json:"level"`
	Raters int       `json:"raters"`
	Alpha  Statistic `json:"krippendorff_alpha"`
	Kappa  Statistic `json:"fleiss_kappa"`
	// Items is the number of items in the vote matrix.
	Items int `json:"items"`
	// Excluded is the number of items dropped for incomplete rating coverage.
	Excluded int `json:"excluded"`
	// Degenerate is set when every rating fell into one category.
	Degenerate bool `json:"degenerate"`
}

// Compute builds the report for a vote matrix.
func Compute(m VoteMatrix, level Level) Report {
	r := Report{
		Level:    level,
		Raters:   m.Raters,
		Alpha:    KrippendorffAlpha(m, level),
		Kappa:    FleissKappa(m),
		Items:    m.N(),
		Excluded: m.Excluded,
	}
	r.Degenerate = m.N() > 0 && len(m.categories()) == 1
	return r
}

// Consistent reports whether alpha and kappa agree in sign and are within
// tol of each other. Two undefined statistics are consistent; one undefined
// statistic is not.
func (r Report) Consistent(tol float64) bool {
	a, k := r.Alpha, r.Kappa
	if !a.Defined() || !k.Defined() {
		return a.Defined() == k.Defined()
	}
	af, kf := a.Float(), k.Float()
	if math.Signbit(af) != math.Signbit(kf) && math.Abs(af) > tol && math.Abs(kf) > tol {
		return false
	}
	return math.Abs(af-kf) <= tol
}
