package domain

import "fmt"

// Action moves Disk from peg From to peg To.
// Actions are plain values; equality is structural.
type Action struct {
	Disk int `json:"disk"`
	From int `json:"from"`
	To   int `json:"to"`
}

// ActionKey is the canonical sub-index of an action in the Q-table (e.g. "0_0_2").
type ActionKey string

// NewAction is a convenience constructor.
func NewAction(disk, from, to int) Action {
	return Action{Disk: disk, From: from, To: to}
}

// Key returns the canonical "disk_from_to" key.
func (a Action) Key() ActionKey {
	return ActionKey(fmt.Sprintf("%d_%d_%d", a.Disk, a.From, a.To))
}

// String renders the action for diagnostics.
func (a Action) String() string {
	return fmt.Sprintf("disk %d: %d→%d", a.Disk, a.From, a.To)
}

// ParseActionKey decodes a key produced by Action.Key.
func ParseActionKey(k ActionKey) (Action, error) {
	var a Action
	if _, err := fmt.Sscanf(string(k), "%d_%d_%d", &a.Disk, &a.From, &a.To); err != nil {
		return Action{}, fmt.Errorf("invalid action key %q: %w", string(k), err)
	}
	return a, nil
}

// QEntry is a single Q-table cell.
type QEntry struct {
	State  StateKey  `json:"state"`
	Action ActionKey `json:"action"`
	Value  float64   `json:"value"`
}
