package extract

// similarity returns a ratio in [0,1] based on the Levenshtein distance
// between two tokens. 1 means identical.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	dist := levenshtein(ra, rb)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	return 1 - float64(dist)/float64(longest)
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min3(cur[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// bestMatch returns the vocabulary entry closest to token and its similarity
// ratio.
func bestMatch(token string, vocab []string) (string, float64) {
	best := ""
	bestRatio := 0.0
	for _, v := range vocab {
		if r := similarity(token, v); r > bestRatio {
			best = v
			bestRatio = r
		}
	}
	return best, bestRatio
}
