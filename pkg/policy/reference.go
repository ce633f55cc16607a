package policy

import "github.com/aretw0/hanoi/pkg/domain"

// OptimalThreeDisk returns the known 7-move solution of the classic puzzle, keyed by
// the states it visits. States off the optimal path have no entry.
func OptimalThreeDisk() Map {
	return Map{
		"0|0|0": domain.NewAction(0, 0, 2),
		"2|0|0": domain.NewAction(1, 0, 1),
		"2|1|0": domain.NewAction(0, 2, 1),
		"1|1|0": domain.NewAction(2, 0, 2),
		"1|1|2": domain.NewAction(0, 1, 0),
		"0|1|2": domain.NewAction(1, 1, 2),
		"0|2|2": domain.NewAction(0, 0, 2),
	}
}
