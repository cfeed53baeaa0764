package market

import "strings"

// Exchange prefixes recognized in fully qualified symbols.
var knownPrefixes = []string{"sh", "sz", "bj"}

// NormalizeSymbol maps a bare A-share code to its market-prefixed form:
// codes starting with 6 or 9 trade on Shanghai, 0 or 3 on Shenzhen, and
// 8 or 4 on the Beijing exchange. Input that already carries a recognized
// prefix is returned lower-cased; anything else is returned unchanged
// (beyond trimming) and will surface as "not found" at fetch time. The
// function never fails.
func NormalizeSymbol(code string) string {
	trimmed := strings.TrimSpace(code)
	lower := strings.ToLower(trimmed)
	if lower == "" {
		return lower
	}

	for _, p := range knownPrefixes {
		if strings.HasPrefix(lower, p) {
			return lower
		}
	}

	switch lower[0] {
	case '6', '9':
		return "sh" + lower
	case '0', '3':
		return "sz" + lower
	case '8', '4':
		return "bj" + lower
	}
	return trimmed
}

// BareCode strips a recognized exchange prefix, returning the six-digit code.
func BareCode(symbol string) string {
	symbol = strings.ToLower(strings.TrimSpace(symbol))
	for _, p := range knownPrefixes {
		if strings.HasPrefix(symbol, p) {
			return strings.TrimPrefix(symbol, p)
		}
	}
	return symbol
}
