// Package format rewrites model output for the channel it is delivered on.
// WhatsApp renders a small subset of Markdown (*bold*, _italic_) and shows
// everything else literally, so standard Markdown needs a translation pass.
package format

import (
	"regexp"
	"strings"
)

var (
	headingLine   = regexp.MustCompile(`^\s{0,3}#{1,6}\s+(.*?)\s*#*\s*$`)
	bulletLine    = regexp.MustCompile(`^(\s*)(?:[-*+\x{2022}\x{2023}\x{25E6}\x{25AA}])\s+(.*)$`)
	hruleLine     = regexp.MustCompile(`^\s*(?:-{3,}|\*{3,}|_{3,})\s*$`)
	fenceLine     = regexp.MustCompile("^\\s*```")
	linkPattern   = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
	strongPattern = regexp.MustCompile(`\*\*([^*]+)\*\*|__([^_]+)__`)
	zeroWidth     = strings.NewReplacer("\u200B", "", "\u200C", "", "\u200D", "", "\uFEFF", "")
)

// WhatsApp converts Markdown-ish model output into WhatsApp-friendly text:
// headings become *bold* lines, all bullet markers normalize to "- ",
// horizontal rules vanish, links unfold to "title (url)", and strong
// emphasis drops to WhatsApp's single asterisk. Fenced code blocks pass
// through untouched, and runs of blank lines outside fences collapse to
// one.
func WhatsApp(text string) string {
	text = zeroWidth.Replace(text)

	var out []string
	inFence := false
	pendingBlank := false

	emit := func(line string) {
		if pendingBlank && len(out) > 0 {
			out = append(out, "")
		}
		pendingBlank = false
		out = append(out, line)
	}

	for _, line := range strings.Split(text, "\n") {
		if fenceLine.MatchString(line) {
			inFence = !inFence
			emit(line)
			continue
		}
		if inFence {
			out = append(out, line)
			continue
		}
		formatted := formatLine(line)
		if strings.TrimSpace(formatted) == "" {
			pendingBlank = true
			continue
		}
		emit(formatted)
	}

	return strings.Join(out, "\n")
}

func formatLine(line string) string {
	if hruleLine.MatchString(line) {
		return ""
	}
	if m := headingLine.FindStringSubmatch(line); m != nil {
		return "*" + formatInline(m[1]) + "*"
	}
	if m := bulletLine.FindStringSubmatch(line); m != nil {
		return m[1] + "- " + formatInline(m[2])
	}
	return formatInline(strings.TrimRight(line, " \t"))
}

func formatInline(s string) string {
	s = linkPattern.ReplaceAllString(s, "$1 ($2)")
	s = strongPattern.ReplaceAllStringFunc(s, func(m string) string {
		return "*" + strings.Trim(m, "*_") + "*"
	})
	return s
}
