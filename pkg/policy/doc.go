// Package policy decides which move to take in a state: epsilon-greedy selection while
// learning, pure greedy extraction afterwards, and a known-optimal reference policy.
package policy
