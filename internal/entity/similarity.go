package entity

// sequenceRatio computes the Ratcliff/Obershelp similarity of two strings:
// twice the number of matching characters over the total length, where
// matches are found by recursively locating the longest common substring.
func sequenceRatio(a, b string) float64 {
	ar, br := []rune(a), []rune(b)

	if len(ar) == 0 && len(br) == 0 {
		return 1.0
	}

	if len(ar) == 0 || len(br) == 0 {
		return 0.0
	}

	matched := matchingRunes(ar, br)

	return 2.0 * float64(matched) / float64(len(ar)+len(br))
}

func matchingRunes(a, b []rune) int {
	ai, bi, size := longestCommonRun(a, b)
	if size == 0 {
		return 0
	}

	return size +
		matchingRunes(a[:ai], b[:bi]) +
		matchingRunes(a[ai+size:], b[bi+size:])
}

// longestCommonRun finds the longest common substring of a and b, returning
// its start offsets and length. On equal lengths the earliest pair wins.
func longestCommonRun(a, b []rune) (ai, bi, size int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}

	// lengths[j] is the match length ending at a[i-1], b[j-1] for the
	// current row; a single row suffices since we scan i ascending.
	lengths := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		prevDiag := 0

		for j := 1; j <= len(b); j++ {
			current := lengths[j]

			if a[i-1] == b[j-1] {
				lengths[j] = prevDiag + 1
				if lengths[j] > size {
					size = lengths[j]
					ai = i - size
					bi = j - size
				}
			} else {
				lengths[j] = 0
			}

			prevDiag = current
		}
	}

	return ai, bi, size
}
