/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package lrucache provides an in-memory cache with LRU eviction, per-entry expiration and Prometheus metrics.
// Expired entries are dropped when they are read and by DeleteExpired, which is meant to be called periodically.
package lrucache
