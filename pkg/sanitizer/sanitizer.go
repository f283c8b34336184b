package sanitizer

import "unicode/utf8"

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

func validUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return ""
}

var freeText = Pipeline{
	validUTF8,
	StripControl,
	TrimAndNormalize,
}

// SanitizeFreeText cleans special requests, cancellation and refund reasons.
func SanitizeFreeText(input string) string {
	return freeText.Apply(input)
}

// SanitizeReference normalizes gateway and booking identifiers echoed back by
// clients; embedded whitespace is never meaningful there.
func SanitizeReference(input string) string {
	return Pipeline{
		validUTF8,
		StripControl,
		func(s string) string {
			out := make([]rune, 0, len(s))
			for _, r := range s {
				if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
					out = append(out, r)
				}
			}
			return string(out)
		},
	}.Apply(input)
}
