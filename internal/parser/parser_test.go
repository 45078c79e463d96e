package parser

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/tissue/internal/apperr"
	"github.com/starford/tissue/internal/models"
)

func TestDecode_TitleWithID(t *testing.T) {
	n, err := Parse([]byte("# #x First\n\nbody #alpha\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.ID != "x" {
		t.Errorf("id = %q, want %q", n.ID, "x")
	}
	if n.Title != "First" {
		t.Errorf("title = %q, want %q", n.Title, "First")
	}
	if n.Text != "body #alpha\n" {
		t.Errorf("text = %q", n.Text)
	}
	if diff := cmp.Diff([]string{"alpha"}, n.Tags.Sorted()); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_IDInMiddleOfTitle(t *testing.T) {
	n, err := Parse([]byte("# Weekly  #plan-42   review\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.ID != "plan-42" {
		t.Errorf("id = %q", n.ID)
	}
	if n.Title != "Weekly review" {
		t.Errorf("title = %q, want %q", n.Title, "Weekly review")
	}
}

func TestDecode_TitleWithoutID(t *testing.T) {
	n, err := Parse([]byte("#   Just a heading  \ntext\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.ID != "" {
		t.Errorf("id = %q, want empty", n.ID)
	}
	if n.Title != "Just a heading" {
		t.Errorf("title = %q", n.Title)
	}
	if n.Text != "text\n" {
		t.Errorf("text = %q", n.Text)
	}
}

func TestDecode_ExtraTitleTagsAreTags(t *testing.T) {
	n, err := Parse([]byte("# #x Ship it #urgent\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.ID != "x" || n.Title != "Ship it #urgent" {
		t.Errorf("id = %q title = %q", n.ID, n.Title)
	}
	if !n.HasTag("urgent") {
		t.Errorf("tags = %v, want urgent", n.Tags.Sorted())
	}
	if n.HasTag("x") {
		t.Error("identifier must not be a tag")
	}
}

func TestDecode_CommentLinesDropped(t *testing.T) {
	input := "# #a T\n\n[comment]: # (List of existing tags:)\n[comment]: # (#ghost)\nreal #kept\n"
	n, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Text != "real #kept\n" {
		t.Errorf("text = %q", n.Text)
	}
	if n.HasTag("ghost") {
		t.Error("tags from comment lines must be ignored")
	}
}

func TestDecode_OnlyFirstTitleLine(t *testing.T) {
	n, err := Parse([]byte("# #a One\n\n# Section #s\nmore\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.ID != "a" || n.Title != "One" {
		t.Errorf("id = %q title = %q", n.ID, n.Title)
	}
	if n.Text != "# Section #s\nmore\n" {
		t.Errorf("text = %q", n.Text)
	}
	if !n.HasTag("s") {
		t.Errorf("tags = %v", n.Tags.Sorted())
	}
}

func TestDecode_ReadFailure(t *testing.T) {
	_, err := Decode(iotest.ErrReader(errors.New("boom")))
	if !errors.Is(err, apperr.ErrDecode) {
		t.Fatalf("err = %v, want ErrDecode", err)
	}
}

func TestExtractTags_Grammar(t *testing.T) {
	cases := []struct {
		line string
		want []string
	}{
		{"plain text", []string{}},
		{"#start of line", []string{"start"}},
		{"a #b c #d", []string{"b", "d"}},
		{"escaped ##notatag", []string{}},
		{"path #project/sub-task_1 done", []string{"project/sub-task_1"}},
		{"trailing #tag.", []string{"tag"}},
		{"lone # hash", []string{}},
		{"glued#x", []string{"x"}},
		{"#a#b", []string{"a", "b"}},
		{"###deep", []string{}},
	}
	for _, c := range cases {
		got := ExtractTags(c.line)
		if diff := cmp.Diff(c.want, got); diff != "" {
			t.Errorf("ExtractTags(%q) mismatch (-want +got):\n%s", c.line, diff)
		}
	}
}

func TestIsTagToken(t *testing.T) {
	cases := map[string]bool{
		"abc":          true,
		"a/b-c_d":      true,
		"":             false,
		"two words":    false,
		"#lead":        false,
		"trail.":       false,
		"ybndrfg8ejkm": true,
		"a#b":          false,
	}
	for in, want := range cases {
		if got := IsTagToken(in); got != want {
			t.Errorf("IsTagToken(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	notes := []models.Note{
		{ID: "x", Title: "First", Text: "body #alpha\n"},
		{ID: "proj/a-1", Title: "", Text: ""},
		{ID: "n2", Title: "Multi word title", Text: "line one\n\nline #three\n"},
		{ID: "n3", Title: "Tagged #hot", Text: "no trailing newline #t"},
	}
	for _, n := range notes {
		got, err := Parse(Format(n))
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if got.ID != n.ID {
			t.Errorf("id = %q, want %q", got.ID, n.ID)
		}
		if got.Title != n.Title {
			t.Errorf("title = %q, want %q", got.Title, n.Title)
		}
		for _, line := range strings.Split(n.Text, "\n") {
			for _, tag := range ExtractTags(line) {
				if !got.HasTag(tag) {
					t.Errorf("note %q lost tag %q", n.ID, tag)
				}
			}
		}
	}
}

func TestRoundTrip_TextStable(t *testing.T) {
	n := models.Note{ID: "a", Title: "T", Text: "one\n\ntwo #b\n"}
	got, err := Parse(Format(n))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Text != n.Text {
		t.Errorf("text = %q, want %q", got.Text, n.Text)
	}
	again := Format(got)
	if !bytes.Equal(again, Format(n)) {
		t.Errorf("re-encoding changed output:\n%s", again)
	}
}

func TestEncode_Layout(t *testing.T) {
	got := string(Format(models.Note{ID: "x", Title: "First", Text: "body"}))
	want := "# #x First\n\nbody\n"
	if got != want {
		t.Errorf("encoded = %q, want %q", got, want)
	}
	got = string(Format(models.Note{Title: "No id"}))
	if got != "# No id\n\n" {
		t.Errorf("encoded = %q", got)
	}
}

func TestTemplateDecodesEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, Template()); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := WriteListing(&buf, []string{"alpha"}, []models.Entry{{ID: "x", Title: "First"}}); err != nil {
		t.Fatalf("WriteListing: %v", err)
	}
	n, err := Parse(buf.Bytes())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if n.ID != "" || n.Title != "" || n.Text != "" || len(n.Tags) != 0 {
		t.Errorf("template decoded to %+v, want empty note", n)
	}
	if !strings.Contains(buf.String(), "[comment]: # (#x - First)") {
		t.Errorf("listing missing note entry:\n%s", buf.String())
	}
}
