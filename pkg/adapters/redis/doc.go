// Package redis fans engine events out to Redis pub/sub channels, one channel per event type.
package redis
