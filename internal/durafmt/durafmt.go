// Package durafmt formats track lengths for display.
package durafmt

import (
	"fmt"
	"strings"
	"time"
)

var durationChunks = []time.Duration{time.Hour, time.Minute, time.Second}

// Format formats the given duration into HH:MM:SS form. The hour is omitted if
// there is none, and the leading chunk is not zero-padded, so 3m5s becomes
// "3:05".
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	var dwords = make([]string, 0, 3)
	var n int

	for i, section := range durationChunks {
		n, d = divide(d, section)
		// Skip hour if there's none.
		if i == 0 && n < 1 {
			continue
		}

		if len(dwords) == 0 {
			dwords = append(dwords, fmt.Sprintf("%d", n))
		} else {
			dwords = append(dwords, fmt.Sprintf("%02d", n))
		}
	}

	return strings.Join(dwords, ":")
}

// Seconds formats a duration given in whole seconds.
func Seconds(secs int) string {
	return Format(time.Duration(secs) * time.Second)
}

func divide(d, div time.Duration) (n int, newd time.Duration) {
	n = int(d / div)
	return n, d - time.Duration(n)*div
}
