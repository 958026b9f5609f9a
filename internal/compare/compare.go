// Package compare evaluates the judgments made by judge steps.
//
// Compare never fails: an invalid pattern or a non-numeric operand
// degrades to a fixed fallback rule instead of an error, so a judge step
// either passes or fails on data alone.
package compare

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// Operator selects the comparison. The numeric codes are the values
// stored in a judge step's action pattern.
type Operator int

const (
	Equals      Operator = 10
	NotEquals   Operator = 20
	GreaterThan Operator = 30
	LessThan    Operator = 40
)

// String returns the operator name.
func (o Operator) String() string {
	switch o {
	case Equals:
		return "equals"
	case NotEquals:
		return "not_equals"
	case GreaterThan:
		return "greater_than"
	case LessThan:
		return "less_than"
	default:
		return "exact(" + strconv.Itoa(int(o)) + ")"
	}
}

// matchTimeout bounds a single regex evaluation; a timeout counts as no match.
const matchTimeout = 100 * time.Millisecond

// Compare reports whether actual satisfies expected under op.
//
//   - Equals: exact match, otherwise expected is tried as a regular
//     expression against actual. An invalid pattern is no match.
//   - NotEquals: false when expected matches actual as a regular
//     expression; an invalid pattern falls back to actual != expected.
//   - GreaterThan, LessThan: numeric when both sides start with a
//     number, otherwise the first UTF-16 code units are compared. An
//     empty side makes the result false.
//   - Any other operator is an exact match.
func Compare(actual, expected string, op Operator) bool {
	switch op {
	case Equals:
		if actual == expected {
			return true
		}
		matched, ok := regexMatch(expected, actual)
		return ok && matched
	case NotEquals:
		matched, ok := regexMatch(expected, actual)
		if !ok {
			return actual != expected
		}
		return !matched
	case GreaterThan:
		return ordered(actual, expected, func(a, b float64) bool { return a > b })
	case LessThan:
		return ordered(actual, expected, func(a, b float64) bool { return a < b })
	default:
		return actual == expected
	}
}

// regexMatch tests pattern against s with ECMAScript semantics. ok is
// false when the pattern does not compile.
func regexMatch(pattern, s string) (matched, ok bool) {
	re, err := regexp2.Compile(pattern, regexp2.ECMAScript)
	if err != nil {
		return false, false
	}
	re.MatchTimeout = matchTimeout

	matched, err = re.MatchString(s)
	if err != nil {
		return false, true
	}
	return matched, true
}

func ordered(actual, expected string, cmp func(a, b float64) bool) bool {
	a, aok := ParseFloatPrefix(actual)
	b, bok := ParseFloatPrefix(expected)
	if aok && bok {
		return cmp(a, b)
	}

	ac, aok := firstCodeUnit(actual)
	bc, bok := firstCodeUnit(expected)
	if !aok || !bok {
		return false
	}
	return cmp(float64(ac), float64(bc))
}

// firstCodeUnit returns the first UTF-16 code unit of s.
func firstCodeUnit(s string) (uint16, bool) {
	if s == "" {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(s)
	return utf16.Encode([]rune{r})[0], true
}

// ParseFloatPrefix parses the longest leading decimal number in s after
// optional whitespace, the way browsers parse a number typed into a field:
// "12.5kg" is 12.5, "-.5" is -0.5, "Infinity" is +Inf, "abc" is no number.
func ParseFloatPrefix(s string) (float64, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)

	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	if strings.HasPrefix(s[i:], "Infinity") {
		if s[0] == '-' {
			return math.Inf(-1), true
		}
		return math.Inf(1), true
	}

	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0, false
	}
	end := i

	// Exponent only counts when at least one digit follows.
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j {
			end = k
		}
	}

	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		// Out of range values still carry a usable ±Inf.
		if errors.Is(err, strconv.ErrRange) {
			return v, true
		}
		return 0, false
	}
	return v, true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
