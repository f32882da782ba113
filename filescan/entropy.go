package filescan

import "math"

// entropyThreshold is the Shannon entropy (bits per byte) above which content
// is almost certainly compressed or encrypted. That alone is not malicious,
// so crossing it only costs score, never the verdict.
const entropyThreshold = 7.5

func shannonEntropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}

	var freq [256]int
	for _, b := range data {
		freq[b]++
	}

	total := float64(len(data))
	entropy := 0.0
	for _, count := range freq {
		if count == 0 {
			continue
		}
		p := float64(count) / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}
