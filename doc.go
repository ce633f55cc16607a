/*
Package hanoi is an epsilon-greedy Q-learning engine that learns to solve the Tower of Hanoi.

The agent explores the finite 3-disk, 3-peg state space, updates a tabular Q-function with
one-step temporal-difference control, and exposes the learned greedy policy for playback.
Learning progress is published as step and episode events so a presentation layer (CLI,
HTTP/SSE, MCP or Redis subscribers) can visualise it without influencing it.

# Concept

A state is the peg of each disk, disk 0 being the smallest. An action moves the top disk of
one peg onto another peg whose top disk is larger. Every move costs a small penalty and
reaching the goal (all disks on the last peg) pays a reward, so the shortest solution,
7 moves, maximises the return.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/hanoi"
	)

	func main() {
		eng, err := hanoi.New()
		if err != nil {
			log.Fatal(err)
		}

		if err := eng.StartLearning(context.Background(), 300, 0); err != nil {
			log.Fatal(err)
		}

		traj := eng.SolveWithPolicy()
		fmt.Println(traj.Solved, traj.Steps)
	}

# Observability

Register domain.LifecycleHooks with WithLifecycleHooks for synchronous callbacks (the
observability.Metrics collectors use this), add ports.EventSink implementations with
WithSink, or subscribe to the in-process stream returned by Events.
*/
package hanoi
