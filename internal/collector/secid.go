package collector

import (
	"fmt"
	"strings"
	"unicode"
)

// NormalizeCode reduces an instrument code to its 6-digit form. Accepts
// '159218', '159218.SZ', '159218.sz' and the like.
func NormalizeCode(code string) (string, error) {
	var digits strings.Builder
	for _, r := range code {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	if digits.Len() < 6 {
		return "", fmt.Errorf("cannot parse instrument code %q", code)
	}
	return digits.String()[:6], nil
}

var (
	shenzhenPrefixes = []string{"00", "30", "15", "16", "18", "8"}
	shanghaiPrefixes = []string{"60", "688", "50", "51", "56", "58"}
)

// SecID maps a code to the provider's market-qualified id:
// Shenzhen (stocks, ETFs like 159xxx, Beijing 8xxxxx) -> "0.<code>",
// Shanghai (stocks, ETFs like 510xxx/588xxx) -> "1.<code>".
func SecID(code string) (string, error) {
	code6, err := NormalizeCode(code)
	if err != nil {
		return "", err
	}
	for _, p := range shanghaiPrefixes {
		if strings.HasPrefix(code6, p) {
			return "1." + code6, nil
		}
	}
	for _, p := range shenzhenPrefixes {
		if strings.HasPrefix(code6, p) {
			return "0." + code6, nil
		}
	}
	return "", fmt.Errorf("cannot infer market for instrument code %q", code)
}
