package services

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// Answer vocabularies, English and Arabic. Entries are compared after normalizeWord.
var (
	yesWords = wordSet("yes", "y", "yeah", "yep", "yup", "true", "available", "on",
		"نعم", "اي", "أي", "ايوه", "أيوه", "ايوا", "اه", "آه", "متوفر", "متاح")
	noWords = wordSet("no", "n", "nope", "false", "unavailable", "off",
		"لا", "مش متوفر", "غير متوفر", "غير متاح")
	confirmWords = wordSet("confirm", "yes", "y", "ok", "okay", "save",
		"تأكيد", "تاكيد", "أكد", "اكد", "نعم", "موافق")
	cancelWords = wordSet("cancel", "no", "n", "stop", "discard",
		"إلغاء", "الغاء", "الغي", "لا")
	// abortWords cancel a dialogue from any step; "no" is excluded because it
	// answers the availability question.
	abortWords = wordSet("cancel", "إلغاء", "الغاء")
)

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[normalizeWord(w)] = struct{}{}
	}
	return set
}

// normalizeWord folds width and case and drops surrounding punctuation.
func normalizeWord(s string) string {
	s = strings.ToLower(norm.NFKC.String(strings.TrimSpace(s)))
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	return strings.Join(strings.Fields(s), " ")
}

func inSet(set map[string]struct{}, s string) bool {
	_, ok := set[normalizeWord(s)]
	return ok
}

func isConfirm(s string) bool { return inSet(confirmWords, s) }
func isCancel(s string) bool  { return inSet(cancelWords, s) }
func isAbort(s string) bool   { return inSet(abortWords, s) }

// ParseYesNo reads an availability answer. ok is false for anything outside
// the vocabulary; that is invalid input, not a negative answer.
func ParseYesNo(s string) (value bool, ok bool) {
	switch {
	case inSet(yesWords, s):
		return true, true
	case inSet(noWords, s):
		return false, true
	}
	return false, false
}

// asciiDigits rewrites every Unicode decimal digit (Arabic-Indic, Devanagari, ...)
// as its ASCII counterpart and maps the Arabic decimal separator to '.'.
func asciiDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r > unicode.MaxASCII && unicode.IsDigit(r):
			b.WriteRune('0' + digitValue(r))
		case r == '٫':
			b.WriteByte('.')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// digitValue relies on every decimal digit block starting at its zero.
func digitValue(r rune) rune {
	var n rune
	for p := r - 1; unicode.IsDigit(p); p-- {
		n++
	}
	return n % 10
}

// ParsePrice extracts a non-negative decimal from free text such as "25",
// "١٢٫٥" or "SAR 1,250.00". Everything except digits and the first decimal
// point is dropped; a second point ends the number. More than two significant
// decimal places is rejected rather than rounded.
func ParsePrice(s string) (decimal.Decimal, bool) {
	s = asciiDigits(norm.NFKC.String(strings.TrimSpace(s)))

	var b strings.Builder
	seenDigit, seenPoint := false, false
scan:
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			seenDigit = true
		case r == '.':
			if seenPoint {
				break scan
			}
			seenPoint = true
			b.WriteRune(r)
		case r == '-' && !seenDigit:
			return decimal.Decimal{}, false
		}
	}
	if !seenDigit {
		return decimal.Decimal{}, false
	}

	num := strings.TrimSuffix(b.String(), ".")
	if strings.HasPrefix(num, ".") {
		num = "0" + num
	}
	price, err := decimal.NewFromString(num)
	if err != nil || price.IsNegative() || !price.Equal(price.Truncate(2)) {
		return decimal.Decimal{}, false
	}
	return price, true
}
