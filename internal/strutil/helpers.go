package strutil

import (
	"strings"

	"github.com/indigo-web/utils/strcomp"
)

func LStripWS(str string) string {
	for i, c := range str {
		switch c {
		case ' ', '\t':
		default:
			return str[i:]
		}
	}

	return ""
}

func RStripWS(str string) string {
	for i := len(str); i > 0; i-- {
		switch str[i-1] {
		case ' ', '\t':
		default:
			return str[:i]
		}
	}

	return ""
}

func StripWS(str string) string {
	return RStripWS(LStripWS(str))
}

// HasToken reports whether a comma-separated header value (e.g. Connection: keep-alive, Upgrade)
// contains the token. The comparison is case-insensitive.
func HasToken(value, token string) bool {
	for len(value) > 0 {
		var elem string
		elem, value, _ = strings.Cut(value, ",")

		if strcomp.EqualFold(StripWS(elem), token) {
			return true
		}
	}

	return false
}

// LastToken returns the last element of a comma-separated header value.
func LastToken(value string) string {
	if sep := strings.LastIndexByte(value, ','); sep != -1 {
		value = value[sep+1:]
	}

	return StripWS(value)
}
