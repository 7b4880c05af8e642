// Package clock provides the integer-seconds timestamp used throughout the
// ledger for transactions, blocks and proposals.
package clock

import (
	"strconv"
	"time"
)

// Now returns the current time as a decimal string of whole seconds since
// the epoch.
func Now() string {
	return strconv.FormatInt(time.Now().Unix(), 10)
}

// Parse parses a decimal seconds-since-epoch string produced by Now.
func Parse(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
