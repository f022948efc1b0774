package amplitude

// symmetricCombos enumerates the particle-index permutations implied
// by identical-particle symmetry in reaction, an ordered list of
// particle type labels. For every label that occurs more than once,
// the choice set at that label is the identity plus every pairwise
// swap among occurrences of that label; the full enumeration is the
// cartesian product of choice sets across labels, applied to the
// default ordering [0,1,...,n-1]. Ported from
// AmplitudeManager::generateSymmetricCombos.
func symmetricCombos(reaction []string) [][]int {
	n := len(reaction)
	defaultOrder := make([]int, n)
	for i := range defaultOrder {
		defaultOrder[i] = i
	}

	pairsByLabel := make(map[string][][2]int)
	var order []string
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if reaction[i] == reaction[j] {
				pairsByLabel[reaction[i]] = append(pairsByLabel[reaction[i]], [2]int{i, j})
			}
		}
	}
	seen := make(map[string]bool)
	for _, label := range reaction {
		if _, ok := pairsByLabel[label]; ok && !seen[label] {
			order = append(order, label)
			seen[label] = true
		}
	}

	if len(order) == 0 {
		return [][]int{defaultOrder}
	}

	choiceSets := make([][][2]int, len(order))
	for i, label := range order {
		choices := append([][2]int(nil), pairsByLabel[label]...)
		choices = append(choices, [2]int{0, 0}) // identity
		choiceSets[i] = choices
	}

	var combos [][]int
	var recurse func(depth int, swaps [][2]int)
	recurse = func(depth int, swaps [][2]int) {
		if depth == len(choiceSets) {
			out := append([]int(nil), defaultOrder...)
			for _, sw := range swaps {
				out[sw[0]], out[sw[1]] = out[sw[1]], out[sw[0]]
			}
			combos = append(combos, out)
			return
		}
		for _, sw := range choiceSets[depth] {
			recurse(depth+1, append(swaps, sw))
		}
	}
	recurse(0, nil)
	return combos
}
