// Package parser converts notes to and from their plain-text file encoding
// and owns the inline tag grammar.
package parser

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/starford/tissue/internal/apperr"
	"github.com/starford/tissue/internal/models"
)

const (
	titlePrefix   = "# "
	commentPrefix = "[comment]: "

	maxLineSize = 1 << 20
)

// tagRe matches a tag marker. Group 1 is the token. Markers preceded by
// another '#' are escapes and are filtered out by tagMatches.
var tagRe = regexp.MustCompile(`#([[:alnum:]/_-]+)`)

// tagMatches returns the submatch indexes of the tag markers in s.
func tagMatches(s string) [][]int {
	all := tagRe.FindAllStringSubmatchIndex(s, -1)
	out := all[:0]
	for _, m := range all {
		if m[0] > 0 && s[m[0]-1] == '#' {
			continue
		}
		out = append(out, m)
	}
	return out
}

// ExtractTags returns every tag token found in line, in order of appearance.
func ExtractTags(line string) []string {
	matches := tagMatches(line)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, line[m[2]:m[3]])
	}
	return out
}

// IsTagToken reports whether s is usable as a tag: "#"+s must be consumed
// entirely by a single tag marker.
func IsTagToken(s string) bool {
	wrapped := "#" + s
	m := tagMatches(wrapped)
	return len(m) == 1 && m[0][0] == 0 && m[0][1] == len(wrapped)
}

// Decode reads the text encoding of a note.
//
// The first line starting with "# " is the title line; its first tag token
// becomes the identifier. One blank line right after the title is the
// separator written by Encode and is skipped. "[comment]: " lines are
// dropped. Everything else is body text.
func Decode(r io.Reader) (models.Note, error) {
	var (
		n          models.Note
		text       strings.Builder
		seenTitle  bool
		afterTitle bool
	)
	n.Tags = models.NewTagSet()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		line := sc.Text()
		separator := afterTitle && line == ""
		afterTitle = false

		switch {
		case !seenTitle && strings.HasPrefix(line, titlePrefix):
			parseTitle(&n, line[len(titlePrefix):])
			seenTitle = true
			afterTitle = true
		case strings.HasPrefix(line, commentPrefix):
		case separator:
		default:
			for _, t := range ExtractTags(line) {
				n.Tags.Add(t)
			}
			text.WriteString(line)
			text.WriteByte('\n')
		}
	}
	if err := sc.Err(); err != nil {
		return models.Note{}, fmt.Errorf("parser: decode: %w: %w", apperr.ErrDecode, err)
	}
	n.Text = text.String()
	return n, nil
}

// parseTitle splits the remainder of a title line into identifier, title and
// any further tags.
func parseTitle(n *models.Note, rest string) {
	matches := tagMatches(rest)
	if len(matches) == 0 {
		n.Title = strings.TrimSpace(rest)
		return
	}
	first := matches[0]
	n.ID = rest[first[2]:first[3]]
	before := strings.TrimSpace(rest[:first[2]-1])
	after := strings.TrimSpace(rest[first[3]:])
	n.Title = strings.TrimSpace(before + " " + after)
	for _, m := range matches[1:] {
		n.Tags.Add(rest[m[2]:m[3]])
	}
}

// Encode writes the text encoding of n: the title line with the identifier
// re-embedded as a tag marker, a blank line, then the body.
func Encode(w io.Writer, n models.Note) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%s%s\n\n", titlePrefix, titleLine(n)); err != nil {
		return err
	}
	if _, err := bw.WriteString(n.Text); err != nil {
		return err
	}
	if n.Text != "" && !strings.HasSuffix(n.Text, "\n") {
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func titleLine(n models.Note) string {
	if n.ID == "" {
		return n.Title
	}
	if n.Title == "" {
		return "#" + n.ID
	}
	return "#" + n.ID + " " + n.Title
}

// Parse decodes a note held in memory.
func Parse(data []byte) (models.Note, error) {
	return Decode(bytes.NewReader(data))
}

// Format encodes n into a byte slice.
func Format(n models.Note) []byte {
	var buf bytes.Buffer
	_ = Encode(&buf, n) // bytes.Buffer writes never fail
	return buf.Bytes()
}
