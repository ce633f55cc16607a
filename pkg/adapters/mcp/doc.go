// Package mcp exposes the learning engine as Model Context Protocol tools, so agents can
// start and stop training, inspect the policy and replay solutions.
package mcp
