package util

import "strings"

const (
	KakaoSeeMorePadding = 500
	KakaoZeroWidthSpace = "\u200b"
)

// ApplyKakaoSeeMorePadding puts instruction on the first line and pushes text
// behind KakaoTalk's "see more" fold with zero-width spaces.
func ApplyKakaoSeeMorePadding(text, instruction string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	message := strings.TrimSpace(instruction)

	var b strings.Builder
	b.Grow(len(text) + KakaoSeeMorePadding*len(KakaoZeroWidthSpace) + len(message) + 1)
	b.WriteString(message)
	b.WriteString(strings.Repeat(KakaoZeroWidthSpace, KakaoSeeMorePadding))
	if !strings.HasPrefix(text, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(text)
	return b.String()
}

// StripLeadingHeader drops header (and the line breaks after it) from the
// start of text.
func StripLeadingHeader(text, header string) string {
	if strings.TrimSpace(text) == "" || strings.TrimSpace(header) == "" {
		return text
	}
	for _, candidate := range []string{header + "\n\n", header + "\n", header} {
		if strings.HasPrefix(text, candidate) {
			return strings.TrimPrefix(text, candidate)
		}
	}
	return text
}

// ApplySeeMoreWithHeader folds everything after header. fallback is used as
// the visible line when header is blank.
func ApplySeeMoreWithHeader(text, header, fallback string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	instruction := strings.TrimSpace(header)
	if instruction == "" {
		instruction = strings.TrimSpace(fallback)
	}
	return ApplyKakaoSeeMorePadding(StripLeadingHeader(text, header), instruction)
}
