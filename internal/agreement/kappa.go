package agreement

// FleissKappa computes Fleiss' kappa over an N×R matrix. It is undefined
// when the matrix is empty, when there are fewer than two raters, or when
// chance agreement is 1 (every rating falls in one category).
func FleissKappa(m VoteMatrix) Statistic {
	n, r := m.N(), m.Raters
	if n == 0 || r < 2 {
		return Undefined()
	}
	nr := float64(n * r)
	perItem := float64(-n * r)
	chance := 0.0
	for _, c := range m.categories() {
		total := 0
		for _, row := range m.Rows {
			count := 0
			for _, v := range row {
				if v == c {
					count++
				}
			}
			perItem += float64(count * count)
			total += count
		}
		p := float64(total) / nr
		chance += p * p
	}
	observed := perItem / (nr * float64(r-1))
	if chance == 1 {
		return Undefined()
	}
	return Statistic((observed - chance) / (1 - chance))
}
