package fingerprint

// TorbenMedian returns the lower median of m without sorting or modifying it.
// It bisects on value range, counting elements on each side of a guess, so the
// cost is a handful of linear passes.
func TorbenMedian(m []float64) float64 {
	var n = len(m)
	if n == 0 {
		return 0
	}

	var lo, hi = m[0], m[0]
	for _, v := range m[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	var half = (n + 1) / 2
	var guess, maxLess, minGreater float64
	for {
		guess = (lo + hi) / 2
		var less, greater, equal int
		maxLess = lo
		minGreater = hi
		for _, v := range m {
			switch {
			case v < guess:
				less++
				if v > maxLess {
					maxLess = v
				}
			case v > guess:
				greater++
				if v < minGreater {
					minGreater = v
				}
			default:
				equal++
			}
		}

		if less <= half && greater <= half {
			switch {
			case less >= half:
				return maxLess
			case less+equal >= half:
				return guess
			default:
				return minGreater
			}
		}

		if less > greater {
			hi = maxLess
		} else {
			lo = minGreater
		}
	}
}
