package formatting

import (
	"fmt"
)

// RateSize prints a bytes/second rate with one decimal place, scaling by
// 1024 and the suffixes B, K, M, G, T
func RateSize(bytesPerSec float64) string {
	return scaleRate(bytesPerSec, 1024, []string{"B", "K", "M", "G", "T"})
}

// RateCount prints a packets/second rate with one decimal place, scaling by
// 1000 and the suffixes (none), K, M, G, T
func RateCount(packetsPerSec float64) string {
	return scaleRate(packetsPerSec, 1000, []string{"", "K", "M", "G", "T"})
}

func scaleRate(val float64, base float64, units []string) string {
	i := 0
	for val >= base && i < len(units)-1 {
		val /= base
		i++
	}
	return fmt.Sprintf("%.1f%s", val, units[i])
}
