package lbvh

// keyLess orders (code, index) pairs. The index breaks ties, so the order is strict.
func keyLess(codeA uint64, idxA int32, codeB uint64, idxB int32) bool {
	return codeA < codeB || (codeA == codeB && idxA < idxB)
}

// sortCodes is a quicksort that sorts the original indices alongside the codes.
// order must hold distinct values, so that equal codes still have a strict order.
func sortCodes(codes []uint64, order []int32, left, right int) {
	for left < right {
		mid := (left + right) >> 1
		pc, pi := codes[mid], order[mid]
		i := left - 1
		j := right + 1

		for {
			i++
			for keyLess(codes[i], order[i], pc, pi) {
				i++
			}
			j--
			for keyLess(pc, pi, codes[j], order[j]) {
				j--
			}
			if i >= j {
				break
			}
			codes[i], codes[j] = codes[j], codes[i]
			order[i], order[j] = order[j], order[i]
		}

		// recurse into the smaller half, loop on the larger one
		if j-left < right-j {
			sortCodes(codes, order, left, j)
			left = j + 1
		} else {
			sortCodes(codes, order, j+1, right)
			right = j
		}
	}
}

// sortByCode returns the codes in ascending order, together with the permutation
// that maps sorted position to original index.
// The input slice is not modified.
func sortByCode(exec Executor, codes []uint64) (sorted []uint64, order []int32) {
	n := len(codes)
	order = make([]int32, n)
	exec.For(n, func(i int) {
		order[i] = int32(i)
	})
	sorted = make([]uint64, n)
	copy(sorted, codes)
	if n > 1 {
		sortCodes(sorted, order, 0, n-1)
	}
	return sorted, order
}

// reorder gathers src by a permutation:
//
//	src   [a,b,c]
//	order [1,0,2]
//	out   [b,a,c]
func reorder[E any](exec Executor, order []int32, src []E) []E {
	out := make([]E, len(order))
	exec.For(len(order), func(i int) {
		out[i] = src[order[i]]
	})
	return out
}

// invertPermutation returns inv such that inv[order[i]] == i
func invertPermutation(exec Executor, order []int32) []int32 {
	inv := make([]int32, len(order))
	exec.For(len(order), func(i int) {
		inv[order[i]] = int32(i)
	})
	return inv
}
