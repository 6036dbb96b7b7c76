package vision

import (
	"fmt"
	"strings"
)

// BuildPrompt returns the fixed instruction for the given emotion names,
// e.g. "happy, sad, mad, or scared".
func BuildPrompt(emotions []string) string {
	return fmt.Sprintf("Analyze the facial expression in this image. "+
		"The person is trying to express one of these emotions: %s. Which one matches best? "+
		"Respond with ONLY a JSON object with these properties: "+
		"'emotion' (string - one of the %s emotions), "+
		"'confidence' (number between 0 and 1), and "+
		"'feedback' (brief text explaining why).",
		joinChoices(emotions), countWord(len(emotions)))
}

func joinChoices(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " or " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", or " + items[len(items)-1]
	}
}

var countWords = []string{"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten"}

func countWord(n int) string {
	if n >= 0 && n < len(countWords) {
		return countWords[n]
	}
	return fmt.Sprint(n)
}
