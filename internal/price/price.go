package price

import (
	"regexp"
	"strconv"
	"strings"
)

// PriceType classifies what kind of price a display string represents
type PriceType string

const (
	TypeList    PriceType = "list"
	TypeSale    PriceType = "sale"
	TypeFrom    PriceType = "from"
	TypeRange   PriceType = "range"
	TypeMember  PriceType = "member"
	TypeUnknown PriceType = "unknown"
)

// Confidence expresses how much trust a resolved currency deserves
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// SwitchStatus reports whether the observed currency matches the market's expectation
type SwitchStatus string

const (
	SwitchOK       SwitchStatus = "ok"
	SwitchMismatch SwitchStatus = "mismatch"
	SwitchFailed   SwitchStatus = "failed"
	SwitchUnknown  SwitchStatus = "unknown"
)

// Parsed is the result of parsing one display price string
type Parsed struct {
	Amount   *float64
	Type     PriceType
	RangeMin *float64
	RangeMax *float64
}

var (
	currencyCodeRe = regexp.MustCompile(`^[A-Z]{3}$`)
	numberTokenRe  = regexp.MustCompile(`\d[\d.,]*|\d`)
	rangeWordRe    = regexp.MustCompile(`(?i)\bto\b`)
	fromRe         = regexp.MustCompile(`(?i)\bfrom\b`)
	memberRe       = regexp.MustCompile(`(?i)\bmember\b`)
	saleRe         = regexp.MustCompile(`(?i)\b(sale|discount|now)\b`)

	rangeSeparators = []string{"-", "–", "—", "~"}

	// Symbols that identify a currency regardless of market
	unambiguousSymbols = map[string]string{
		"€": "EUR", // €
		"£": "GBP", // £
	}

	// "$" means a different currency per storefront region
	dollarByMarket = map[string]string{
		"US": "USD",
		"SG": "SGD",
	}
)

// normalizeCode uppercases and validates a 3-letter ISO currency code.
// Returns "" when the input is not a valid code.
func normalizeCode(raw string) string {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if currencyCodeRe.MatchString(code) {
		return code
	}
	return ""
}

// ResolveCurrency walks the trust cascade for currency signals:
// structured data beats page meta tags beats symbols in the display text.
func ResolveCurrency(structured string, metaCandidates []string, priceDisplayRaw, marketID string) (string, Confidence) {
	if code := normalizeCode(structured); code != "" {
		return code, ConfidenceHigh
	}

	for _, cand := range metaCandidates {
		if code := normalizeCode(cand); code != "" {
			return code, ConfidenceMedium
		}
	}

	if code := currencyFromSymbol(priceDisplayRaw, marketID); code != "" {
		return code, ConfidenceLow
	}

	return "", ConfidenceLow
}

// currencyFromSymbol infers a currency from symbols embedded in display text.
// Ambiguous symbols are disambiguated by market; unmapped markets yield "".
func currencyFromSymbol(raw, marketID string) string {
	market := strings.ToUpper(strings.TrimSpace(marketID))

	for symbol, code := range unambiguousSymbols {
		if strings.Contains(raw, symbol) {
			return code
		}
	}

	if strings.Contains(raw, "¥") || strings.Contains(raw, "￥") { // ¥ / ￥
		if market == "JP" {
			return "JPY"
		}
		return ""
	}

	if strings.Contains(raw, "$") {
		return dollarByMarket[market]
	}

	return ""
}

// ResolveMarketSwitchStatus compares observed vs expected currency for a market.
// An upstream failure always wins over the comparison.
func ResolveMarketSwitchStatus(observed, expected string, explicitFailed bool) SwitchStatus {
	if explicitFailed {
		return SwitchFailed
	}
	if strings.TrimSpace(observed) == "" {
		return SwitchUnknown
	}
	if strings.EqualFold(strings.TrimSpace(observed), strings.TrimSpace(expected)) {
		return SwitchOK
	}
	return SwitchMismatch
}

// ParsePrice extracts numeric amounts and a price type from a raw display string.
// Separator handling is heuristic: it covers the documented comma/period cases
// and is not a general locale-aware parser.
func ParsePrice(raw string) Parsed {
	numbers := extractNumbers(raw)

	if len(numbers) >= 2 && hasRangeIndicator(raw) {
		min, max := numbers[0], numbers[0]
		for _, n := range numbers[1:] {
			if n < min {
				min = n
			}
			if n > max {
				max = n
			}
		}
		amount := min
		return Parsed{Amount: &amount, Type: TypeRange, RangeMin: &min, RangeMax: &max}
	}

	var amount *float64
	if len(numbers) > 0 {
		amount = &numbers[0]
	}

	return Parsed{Amount: amount, Type: classify(raw, amount)}
}

func classify(raw string, amount *float64) PriceType {
	switch {
	case fromRe.MatchString(raw):
		return TypeFrom
	case memberRe.MatchString(raw):
		return TypeMember
	case saleRe.MatchString(raw):
		return TypeSale
	case amount != nil:
		return TypeList
	default:
		return TypeUnknown
	}
}

func hasRangeIndicator(raw string) bool {
	if rangeWordRe.MatchString(raw) {
		return true
	}
	for _, sep := range rangeSeparators {
		if strings.Contains(raw, sep) {
			return true
		}
	}
	return false
}

// extractNumbers pulls every numeric token out of the string, resolving
// thousands/decimal separator ambiguity per token.
func extractNumbers(raw string) []float64 {
	var out []float64
	for _, token := range numberTokenRe.FindAllString(raw, -1) {
		token = strings.Trim(token, ".,")
		if token == "" {
			continue
		}
		if n, ok := parseToken(token); ok {
			out = append(out, n)
		}
	}
	return out
}

// parseToken normalizes one numeric token to a float. A token carrying both
// separators uses whichever appears last as the decimal point; a comma-only
// token is decimal only when at most two digits follow the comma.
func parseToken(token string) (float64, bool) {
	lastComma := strings.LastIndex(token, ",")
	lastDot := strings.LastIndex(token, ".")

	var normalized string
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			normalized = strings.ReplaceAll(token, ".", "")
			normalized = strings.Replace(normalized, ",", ".", 1)
		} else {
			normalized = strings.ReplaceAll(token, ",", "")
		}
	case lastComma >= 0:
		if len(token)-lastComma-1 <= 2 {
			// decimal comma, but only when there is a single comma
			if strings.Count(token, ",") == 1 {
				normalized = strings.Replace(token, ",", ".", 1)
			} else {
				normalized = strings.ReplaceAll(token, ",", "")
			}
		} else {
			normalized = strings.ReplaceAll(token, ",", "")
		}
	default:
		normalized = token
	}

	n, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
