package checksum

import (
	"crypto/sha256"
	"encoding/base32"

	"github.com/starford/tissue/internal/models"
	"github.com/starford/tissue/internal/parser"
)

// zbase32 is the human-oriented base32 alphabet: lowercase only, so every
// identifier is also a valid tag token and file stem.
var zbase32 = base32.NewEncoding("ybndrfg8ejkmcpqxot1uwisza345h769").WithPadding(base32.NoPadding)

// NoteID derives a deterministic identifier from the note's content: SHA-224
// over the title, the text and every tag in sorted order.
func NoteID(n models.Note) string {
	h := sha256.New224()
	write := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	write(n.Title)
	write(n.Text)
	for _, t := range n.Tags.Sorted() {
		write(t)
	}
	return zbase32.EncodeToString(h.Sum(nil))
}

// Repair replaces a missing or malformed identifier with NoteID. A tag-shaped
// identifier is kept as is.
func Repair(n *models.Note) {
	if n.ID == "" || !parser.IsTagToken(n.ID) {
		n.ID = NoteID(*n)
	}
}
