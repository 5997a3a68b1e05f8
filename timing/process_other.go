//go:build !linux

package timing

import "time"

func osProcessStart() (time.Time, bool) {
	return time.Time{}, false
}
