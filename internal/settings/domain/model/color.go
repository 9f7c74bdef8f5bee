package model

import "regexp"

// maxColorLength bounds stored color strings; the longest functional form fits well inside it.
const maxColorLength = 64

var (
	hexColorPattern   = regexp.MustCompile(`^#([0-9a-fA-F]{3,4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	namedColorPattern = regexp.MustCompile(`^[a-zA-Z]+$`)

	// rgb()/rgba()/hsl()/hsla() with legacy comma or modern space/slash separators
	functionalColorPattern = regexp.MustCompile(
		`(?i)^(rgba?|hsla?)\(\s*` + colorArg + `(\s*[,/]\s*` + colorArg + `|\s+` + colorArg + `){2,3}\s*\)$`)
)

const colorArg = `[-+]?([0-9]+\.?[0-9]*|\.[0-9]+)(%|deg|rad|grad|turn)?`

// IsValidCSSColor accepts #rgb, #rgba, #rrggbb, #rrggbbaa, the rgb/rgba/hsl/hsla
// functional forms and bare named colors. Named colors are not checked against
// the CSS list; any letters-only token passes.
func IsValidCSSColor(color string) bool {
	if color == "" || len(color) > maxColorLength {
		return false
	}
	return hexColorPattern.MatchString(color) ||
		namedColorPattern.MatchString(color) ||
		functionalColorPattern.MatchString(color)
}
