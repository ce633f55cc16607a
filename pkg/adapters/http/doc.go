// Package http exposes the learning engine as a JSON API with a Server-Sent Events feed.
package http
