package builtin

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"
)

// Hash is the content key used in diff file names.
func Hash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// UnifiedDiff renders the change from before to after for name.
func UnifiedDiff(name, before, after string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  3,
	})
}

// SaveDiff writes <dir>/<base>_<timestamp>_<sha256 of after>.diff and
// returns its path. Nothing is written when the content is unchanged.
// Keying on the edited content lets FindDiff start from the file as it
// is now.
func SaveDiff(dir, name, before, after string) (string, error) {
	if before == after {
		return "", nil
	}
	diff, err := UnifiedDiff(name, before, after)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	file := fmt.Sprintf("%s_%s_%s.diff", filepath.Base(name), time.Now().UTC().Format("20060102T150405.000000"), Hash(after))
	path := filepath.Join(dir, file)
	if err := os.WriteFile(path, []byte(diff), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// FindDiff locates the newest saved diff that produced content, or "" when
// there is none.
func FindDiff(dir, name, content string) (string, error) {
	pattern := filepath.Join(dir, filepath.Base(name)+"_*_"+Hash(content)+".diff")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", err
	}
	newest := ""
	for _, m := range matches {
		if strings.Compare(m, newest) > 0 {
			newest = m
		}
	}
	return newest, nil
}

var errDiffMismatch = errors.New("diff does not match the file")

type hunk struct {
	newStart int
	newLen   int
	lines    []string
}

// parseHunks reads the hunks of a unified diff produced by UnifiedDiff.
func parseHunks(diff string) ([]hunk, error) {
	lines := strings.SplitAfter(diff, "\n")
	var hunks []hunk
	for i := 0; i < len(lines); i++ {
		if !strings.HasPrefix(lines[i], "@@ ") {
			continue
		}
		fields := strings.Fields(lines[i])
		if len(fields) < 4 {
			return nil, fmt.Errorf("%w: bad hunk header %q", errDiffMismatch, lines[i])
		}
		_, oldLen, err := parseRange(strings.TrimPrefix(fields[1], "-"))
		if err != nil {
			return nil, err
		}
		newStart, newLen, err := parseRange(strings.TrimPrefix(fields[2], "+"))
		if err != nil {
			return nil, err
		}
		h := hunk{newStart: newStart, newLen: newLen}
		for o, n := oldLen, newLen; o > 0 || n > 0; {
			i++
			if i >= len(lines) || lines[i] == "" {
				return nil, fmt.Errorf("%w: truncated hunk", errDiffMismatch)
			}
			switch lines[i][0] {
			case ' ':
				o--
				n--
			case '-':
				o--
			case '+':
				n--
			default:
				return nil, fmt.Errorf("%w: unexpected line %q", errDiffMismatch, lines[i])
			}
			h.lines = append(h.lines, lines[i])
		}
		hunks = append(hunks, h)
	}
	return hunks, nil
}

// parseRange turns "start,len" or "start" into a zero-based start and a length.
func parseRange(r string) (start, length int, err error) {
	s, l, found := strings.Cut(r, ",")
	if start, err = strconv.Atoi(s); err != nil {
		return 0, 0, fmt.Errorf("%w: bad range %q", errDiffMismatch, r)
	}
	length = 1
	if found {
		if length, err = strconv.Atoi(l); err != nil {
			return 0, 0, fmt.Errorf("%w: bad range %q", errDiffMismatch, r)
		}
	}
	if length > 0 {
		start--
	}
	return start, length, nil
}

// ReverseDiff undoes diff on current, the content the diff produced, and
// returns the content it was made from.
func ReverseDiff(diff, current string) (string, error) {
	hunks, err := parseHunks(diff)
	if err != nil {
		return "", err
	}
	src := difflib.SplitLines(current)
	var out []string
	pos := 0
	for _, h := range hunks {
		if h.newStart < pos || h.newStart+h.newLen > len(src) {
			return "", fmt.Errorf("%w: hunk at line %d out of range", errDiffMismatch, h.newStart+1)
		}
		out = append(out, src[pos:h.newStart]...)
		at := h.newStart
		for _, line := range h.lines {
			op, text := line[0], line[1:]
			if op != '-' {
				if src[at] != text {
					return "", fmt.Errorf("%w: line %d differs", errDiffMismatch, at+1)
				}
				at++
			}
			if op != '+' {
				out = append(out, text)
			}
		}
		pos = at
	}
	out = append(out, src[pos:]...)
	// SplitLines terminates the last line with an extra newline
	return strings.TrimSuffix(strings.Join(out, ""), "\n"), nil
}
