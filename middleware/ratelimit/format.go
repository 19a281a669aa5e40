// utilitário pequeno para formatação consistente de valores numéricos em headers.

package ratelimit

import "strconv"

func formatInt(v int) string { return strconv.Itoa(v) }

func formatSeconds(v float64) string {
	if v < 0 {
		v = 0
	}
	return strconv.FormatInt(int64(v), 10)
}
