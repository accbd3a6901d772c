// Package httputil provides shared HTTP response helpers so every handler
// writes JSON envelopes the same way.
package httputil
