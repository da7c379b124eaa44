// Package text provides plain-text manipulation helpers.
package text

// ExtractParts returns start, middle, and end chunks of up to numChars
// characters each. Chunks overlap when the text is shorter than three
// times numChars; callers that care should check the input length first.
func ExtractParts(text string, numChars int) (start, middle, end string) {
	runes := []rune(text)
	n := len(runes)
	if numChars <= 0 || n == 0 {
		return "", "", ""
	}
	if n <= numChars {
		return string(runes), string(runes), string(runes)
	}

	mid := n / 2
	midEnd := mid + numChars
	if midEnd > n {
		midEnd = n
	}
	return string(runes[:numChars]), string(runes[mid:midEnd]), string(runes[n-numChars:])
}
