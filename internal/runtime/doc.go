// Package runtime runs the Q-learning control loop over the puzzle rules and a Q-store,
// and replays extracted policies.
package runtime
