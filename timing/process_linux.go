package timing

import (
	"math"
	"time"

	"github.com/prometheus/procfs"
)

func osProcessStart() (time.Time, bool) {
	p, err := procfs.Self()
	if err != nil {
		return time.Time{}, false
	}
	st, err := p.Stat()
	if err != nil {
		return time.Time{}, false
	}
	secs, err := st.StartTime()
	if err != nil {
		return time.Time{}, false
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*1e9)), true
}
