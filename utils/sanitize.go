package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	bodyPolicy  = bluemonday.UGCPolicy()
	plainPolicy = bluemonday.StrictPolicy()
)

// Sanitize cleans user supplied HTML for question, answer and comment bodies.
func Sanitize(input string) string {
	return strings.TrimSpace(bodyPolicy.Sanitize(input))
}

// SanitizePlain strips all markup; used for titles, reasons and signatures.
func SanitizePlain(input string) string {
	return strings.TrimSpace(plainPolicy.Sanitize(input))
}
