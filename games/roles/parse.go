/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package roles

import (
	"strings"

	"github.com/samber/lo"
)

func isDelimiter(r rune) bool {
	return r == ',' || r == '\n'
}

// ParseNames splits raw input on any run of commas and newlines, trims each
// segment and drops the ones left empty. Order and duplicates are kept.
func ParseNames(text string) []string {
	names := lo.Map(strings.FieldsFunc(text, isDelimiter), func(s string, _ int) string {
		return strings.TrimSpace(s)
	})

	return lo.Filter(names, func(s string, _ int) bool { return s != "" })
}
