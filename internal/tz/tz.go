// Package tz resolves IANA timezone ids for local-hour computations.
package tz

import "time"

// Resolve returns the location for the given IANA id. Unknown or empty ids
// resolve to UTC with ok=false; callers log and fall back rather than fail.
func Resolve(id string) (loc *time.Location, ok bool) {
	if id == "" {
		return time.UTC, false
	}
	loc, err := time.LoadLocation(id)
	if err != nil {
		return time.UTC, false
	}
	return loc, true
}
