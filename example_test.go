package hanoi_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/hanoi"
	"github.com/aretw0/hanoi/pkg/policy"
)

// ExampleEngine_Solve replays the known optimal policy of the classic puzzle.
func ExampleEngine_Solve() {
	eng, err := hanoi.New()
	if err != nil {
		log.Fatal(err)
	}

	traj := eng.Solve(policy.OptimalThreeDisk())
	for _, a := range traj.Actions {
		fmt.Println(a)
	}
	fmt.Println("solved:", traj.Solved, "steps:", traj.Steps)

	// Output:
	// disk 0: 0→2
	// disk 1: 0→1
	// disk 0: 2→1
	// disk 2: 0→2
	// disk 0: 1→0
	// disk 1: 1→2
	// disk 0: 0→2
	// solved: true steps: 7
}

// ExampleEngine_StartLearning trains briefly with a fixed seed.
func ExampleEngine_StartLearning() {
	eng, err := hanoi.New()
	if err != nil {
		log.Fatal(err)
	}

	if err := eng.StartLearning(context.Background(), 10, 0); err != nil {
		log.Fatal(err)
	}
	fmt.Println("episodes:", eng.Stats().TotalEpisodes)

	// Output:
	// episodes: 10
}
