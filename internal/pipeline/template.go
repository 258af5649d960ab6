package pipeline

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
)

var jsonBlockRE = regexp.MustCompile("```json\\s*([\\s\\S]*?)```")

// maskJSONExamples swaps every ```json block for a sentinel so its braces are
// not read as placeholders. The map holds sentinel -> the block as written.
func maskJSONExamples(tmpl string) (string, map[string]string) {
	examples := map[string]string{}
	masked := jsonBlockRE.ReplaceAllStringFunc(tmpl, func(block string) string {
		body := jsonBlockRE.FindStringSubmatch(block)[1]
		sum := md5.Sum([]byte(body))
		sentinel := "<<<JSON_EXAMPLE_" + hex.EncodeToString(sum[:])[:8] + ">>>"
		examples[sentinel] = block
		return sentinel
	})
	return masked, examples
}

// unmaskJSONExamples puts the blocks back byte for byte, with braces doubled
// so rendering emits them verbatim.
func unmaskJSONExamples(tmpl string, examples map[string]string) string {
	escape := strings.NewReplacer("{", "{{", "}", "}}")
	for sentinel, block := range examples {
		tmpl = strings.ReplaceAll(tmpl, sentinel, escape.Replace(block))
	}
	return tmpl
}

// segment is one piece of a scanned template: literal text or a placeholder.
type segment struct {
	text        string
	placeholder bool
}

// scan splits tmpl into literals and {placeholders}. "{{" and "}}" are
// escaped braces; a brace that does not close a placeholder is literal.
func scan(tmpl string) []segment {
	var out []segment
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			out = append(out, segment{text: lit.String()})
			lit.Reset()
		}
	}
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch {
		case c == '{' && i+1 < len(tmpl) && tmpl[i+1] == '{':
			lit.WriteByte('{')
			i++
		case c == '}' && i+1 < len(tmpl) && tmpl[i+1] == '}':
			lit.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexAny(tmpl[i+1:], "{}")
			if end > 0 && tmpl[i+1+end] == '}' {
				flush()
				out = append(out, segment{text: tmpl[i+1 : i+1+end], placeholder: true})
				i += end + 1
				continue
			}
			lit.WriteByte(c)
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return out
}

// Placeholders lists the distinct placeholder names in tmpl, sorted.
func Placeholders(tmpl string) []string {
	seen := map[string]bool{}
	var names []string
	for _, s := range scan(tmpl) {
		if s.placeholder && !seen[s.text] {
			seen[s.text] = true
			names = append(names, s.text)
		}
	}
	sort.Strings(names)
	return names
}

// splitPath turns "root.a.b" into ("root", "a.b").
func splitPath(token string) (root, path string) {
	root, path, _ = strings.Cut(token, ".")
	return root, path
}

// flatName is the renamed placeholder for a dotted token.
func flatName(token string) string {
	return strings.ReplaceAll(token, ".", "_")
}

// rewrite renames every placeholder through rename and re-escapes literals
// so the result scans back to the same structure.
func rewrite(tmpl string, rename func(string) string) string {
	var b strings.Builder
	esc := strings.NewReplacer("{", "{{", "}", "}}")
	for _, s := range scan(tmpl) {
		if s.placeholder {
			b.WriteString("{" + rename(s.text) + "}")
			continue
		}
		b.WriteString(esc.Replace(s.text))
	}
	return b.String()
}

// render substitutes values into a declared prompt.
func render(prompt string, values map[string]string) string {
	var b strings.Builder
	for _, s := range scan(prompt) {
		if s.placeholder {
			b.WriteString(values[s.text])
			continue
		}
		b.WriteString(s.text)
	}
	return b.String()
}
