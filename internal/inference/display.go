package inference

import (
	"fmt"
	"strconv"
	"strings"
)

// SpacePlaceholder is the vocabulary's stand-in for a literal space.
const SpacePlaceholder = "▁"

// DisplayText maps a token surface string to what is printed while
// streaming. Surfaces of the form <0xNN> encode one raw byte: it is shown
// only when printable ASCII (newline, carriage return and tab included) and
// suppressed otherwise, in which case ok is false. Partial multi-byte
// sequences are not reassembled.
func DisplayText(surface string) (text string, ok bool) {
	if b, isByte := parseByteToken(surface); isByte {
		if !printableByte(b) {
			return "", false
		}
		return string(rune(b)), true
	}
	return strings.ReplaceAll(surface, SpacePlaceholder, " "), true
}

// FormatPromptToken renders one line of the verbose prompt listing.
func FormatPromptToken(id int, surface string) string {
	text, ok := DisplayText(surface)
	if !ok {
		text = surface
	}
	return fmt.Sprintf("%7d -> '%s'", id, text)
}

func parseByteToken(s string) (byte, bool) {
	if len(s) != 6 || !strings.HasPrefix(s, "<0x") || s[5] != '>' {
		return 0, false
	}
	v, err := strconv.ParseUint(s[3:5], 16, 8)
	if err != nil {
		return 0, false
	}
	return byte(v), true
}

func printableByte(b byte) bool {
	switch b {
	case '\n', '\r', '\t':
		return true
	}
	return b >= 0x20 && b < 0x7f
}
