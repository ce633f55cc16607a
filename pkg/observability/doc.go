/*
Package observability provides tools for watching the learning engine.

It includes an in-process event stream with bounded, non-blocking fan-out to
subscribers (used by the SSE endpoint and the CLI), and Prometheus metrics fed
through lifecycle hooks.
*/
package observability
