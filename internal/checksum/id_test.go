package checksum

import (
	"testing"

	"github.com/starford/tissue/internal/models"
	"github.com/starford/tissue/internal/parser"
)

func sample() models.Note {
	return models.Note{
		Title: "Groceries",
		Text:  "milk #shop\neggs #home\n",
		Tags:  models.NewTagSet("shop", "home"),
	}
}

func TestNoteID_Deterministic(t *testing.T) {
	n := sample()
	a, b := NoteID(n), NoteID(n)
	if a != b {
		t.Fatalf("ids differ: %q vs %q", a, b)
	}
	// 224 bits in 5-bit symbols, unpadded.
	if len(a) != 45 {
		t.Errorf("len = %d, want 45", len(a))
	}
	if !parser.IsTagToken(a) {
		t.Errorf("id %q is not a tag token", a)
	}
}

func TestNoteID_TagOrderIrrelevant(t *testing.T) {
	a := sample()
	b := sample()
	b.Tags = models.NewTagSet("home", "shop")
	if NoteID(a) != NoteID(b) {
		t.Error("insertion order must not change the id")
	}
}

func TestNoteID_SensitiveToContent(t *testing.T) {
	base := NoteID(sample())

	tagged := sample()
	tagged.Tags.Add("extra")
	if NoteID(tagged) == base {
		t.Error("adding a tag must change the id")
	}

	retitled := sample()
	retitled.Title = "Groceries!"
	if NoteID(retitled) == base {
		t.Error("changing the title must change the id")
	}

	// Field boundaries are part of the digest.
	shifted := sample()
	shifted.Title = "Groceriesm"
	shifted.Text = "ilk #shop\neggs #home\n"
	if NoteID(shifted) == base {
		t.Error("moving bytes between fields must change the id")
	}
}

func TestRepair(t *testing.T) {
	cases := []struct {
		name   string
		id     string
		keepID bool
	}{
		{"empty", "", false},
		{"tag shaped", "todo-1", true},
		{"path like", "work/q3", true},
		{"placeholder", "<uid optional>", false},
		{"spaces", "two words", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			n := sample()
			n.ID = c.id
			Repair(&n)
			if c.keepID && n.ID != c.id {
				t.Errorf("id = %q, want %q kept", n.ID, c.id)
			}
			if !c.keepID && n.ID != NoteID(sample()) {
				t.Errorf("id = %q, want generated", n.ID)
			}
		})
	}
}

func TestSum(t *testing.T) {
	// SHA-256 of the empty string.
	const want = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Sum(nil); got != want {
		t.Errorf("Sum(nil) = %q", got)
	}
}
