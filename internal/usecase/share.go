package usecase

import (
	"net/url"
	"regexp"
	"strings"
)

// ShareTarget is the UI endpoint that receives shared links.
const ShareTarget = "https://shsf-api.reversed.dev/api/exec/7/c109a958-e326-4619-993f-44985da7cec7/"

// slashToken replaces "/" in the forwarded link; the hosting router rejects
// raw slashes inside path-like parameters.
const slashToken = "SLASH"

// A link runs until the first Unicode whitespace character. RE2's \s is
// ASCII-only, so the remaining separators are listed explicitly.
var shareLinkPattern = regexp.MustCompile(`https?://[^\s\p{Z}\v\x{1c}-\x{1f}\x{85}]+`)

// ShareRedirect turns a form-encoded share-sheet body into the redirect
// location carrying the first link found in its text field. The rewrite is
// one-way.
func ShareRedirect(formBody string) string {
	return ShareTarget + "?url=" + url.QueryEscape(ShareLink(formBody))
}

// ShareLink extracts and rewrites the shared link, or returns "" if the
// text contains none.
func ShareLink(formBody string) string {
	text := unquotePlus(formValue(formBody, "text"))

	link := shareLinkPattern.FindString(text)
	link, _, _ = strings.Cut(link, "?")
	return strings.ReplaceAll(link, "/", slashToken)
}

// formValue returns the first non-empty value of key. Pairs are split on
// "&" only and decoded leniently; pairs without "=" or with an empty value
// are skipped.
func formValue(body, key string) string {
	for _, pair := range strings.Split(body, "&") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || value == "" {
			continue
		}
		if unquotePlus(name) == key {
			return unquotePlus(value)
		}
	}
	return ""
}

// unquotePlus decodes "+" as a space and every well-formed %XX escape.
// Malformed escapes stay in the output as written.
func unquotePlus(s string) string {
	s = strings.ReplaceAll(s, "+", " ")
	if !strings.Contains(s, "%") {
		return s
	}

	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			hi, okHi := unhex(s[i+1])
			lo, okLo := unhex(s[i+2])
			if okHi && okLo {
				out = append(out, hi<<4|lo)
				i += 2
				continue
			}
		}
		out = append(out, s[i])
	}
	return strings.ToValidUTF8(string(out), "\uFFFD")
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
