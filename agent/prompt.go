package agent

import (
	"regexp"
	"strings"

	"github.com/veritaslab/tribunal/session"
)

// placeholderPattern matches {key} and {key?} instruction placeholders.
var placeholderPattern = regexp.MustCompile(`\{\s*([A-Za-z_][A-Za-z0-9_]*)(\?)?\s*\}`)

// RenderInstruction substitutes session state into an instruction template.
// {key} and {key?} both resolve to the field's current value; list fields
// render one entry per line. Missing fields render as empty text — the `?`
// marker documents that a field is expected to be absent on early rounds.
func RenderInstruction(template string, state *session.State) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		groups := placeholderPattern.FindStringSubmatch(match)
		field := groups[1]

		list := state.GetList(field)
		if len(list) == 0 {
			return ""
		}
		if len(list) == 1 {
			return list[0]
		}

		var b strings.Builder
		for i, item := range list {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString("- ")
			b.WriteString(item)
		}
		return b.String()
	})
}
