package notebook

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/tissue/internal/apperr"
	"github.com/starford/tissue/internal/models"
	"github.com/starford/tissue/internal/storage"
)

var quiet = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// fixture writes files into a fresh directory and opens a notebook on it.
func fixture(t *testing.T, files map[string]string) (*Notebook, string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	nb, err := Open(store, quiet)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return nb, dir
}

func ids(notes []models.Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.ID
	}
	return out
}

func TestOpen_Scenario(t *testing.T) {
	nb, _ := fixture(t, map[string]string{
		"x.md": "# #x First\n\nbody #alpha",
	})
	got := nb.Query([]string{"alpha"}, nil)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	n := got[0]
	if n.ID != "x" || n.Title != "First" {
		t.Errorf("note = %+v", n)
	}
	if diff := cmp.Diff([]string{"alpha"}, n.Tags.Sorted()); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestOpen_IDFallsBackToFileName(t *testing.T) {
	nb, _ := fixture(t, map[string]string{
		"stem.md":            "# Untitled id\n\ntext\n",
		"work%2Fq3.md":       "no title line at all #t\n",
		"notes.txt":          "# #ignored not markdown\n",
		".scratch-backup.md": "# #hidden\n",
	})
	if diff := cmp.Diff([]string{"stem", "work/q3"}, nb.Identifiers()); diff != "" {
		t.Errorf("identifiers mismatch (-want +got):\n%s", diff)
	}
	n, ok := nb.Get("stem")
	if !ok || n.Title != "Untitled id" {
		t.Errorf("note = %+v ok=%v", n, ok)
	}
}

func TestOpen_SkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "archive.md"), 0o755); err != nil {
		t.Fatal(err)
	}
	store, _ := storage.NewFS(dir)
	nb, err := Open(store, quiet)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if nb.Len() != 0 {
		t.Errorf("len = %d, want 0", nb.Len())
	}
}

func TestOpen_UnreadableFileIsFatal(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read any file")
	}
	dir := t.TempDir()
	p := filepath.Join(dir, "locked.md")
	if err := os.WriteFile(p, []byte("# #a A\n"), 0o000); err != nil {
		t.Fatal(err)
	}
	store, _ := storage.NewFS(dir)
	_, err := Open(store, quiet)
	if !errors.Is(err, apperr.ErrDecode) {
		t.Fatalf("err = %v, want ErrDecode", err)
	}
}

func TestQuery_EmptyIncludeReturnsAll(t *testing.T) {
	nb, _ := fixture(t, map[string]string{
		"a.md": "# #a A\n\n#one\n",
		"b.md": "# #b B\n\n#two\n",
		"c.md": "# #c C\n\nplain\n",
	})
	if diff := cmp.Diff([]string{"a", "b", "c"}, ids(nb.Query(nil, nil))); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestQuery_IncludeAndExcludeSameTagIsEmpty(t *testing.T) {
	nb, _ := fixture(t, map[string]string{
		"a.md": "# #a A\n\n#one\n",
		"b.md": "# #b B\n\n#one #two\n",
	})
	for _, tag := range []string{"one", "two", "unknown", "a"} {
		if got := nb.Query([]string{tag}, []string{tag}); len(got) != 0 {
			t.Errorf("Query([%s],[%s]) = %v, want empty", tag, tag, ids(got))
		}
	}
}

func TestQuery_UnionOfIncludes(t *testing.T) {
	nb, _ := fixture(t, map[string]string{
		"a.md": "# #a A\n\nx #one\n",
		"b.md": "# #b B\n\ny #two\n",
		"c.md": "# #c C\n\nz\n",
	})
	got := ids(nb.Query([]string{"one", "two"}, nil))
	if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestQuery_Exclude(t *testing.T) {
	nb, _ := fixture(t, map[string]string{
		"a.md": "# #a A\n\n#task #done\n",
		"b.md": "# #b B\n\n#task\n",
		"c.md": "# #c C\n\n#idea\n",
	})
	got := ids(nb.Query([]string{"task"}, []string{"done"}))
	if diff := cmp.Diff([]string{"b"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	got = ids(nb.Query(nil, []string{"task"}))
	if diff := cmp.Diff([]string{"c"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestQuery_RawIdentifierAsTag(t *testing.T) {
	nb, _ := fixture(t, map[string]string{
		"a.md": "# #a A\n\n#one\n",
		"b.md": "# #b B\n\n#one\n",
	})
	got := ids(nb.Query([]string{"b"}, nil))
	if diff := cmp.Diff([]string{"b"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	// Unknown words that are not identifiers resolve to nothing.
	if got := nb.Query([]string{"nope"}, nil); len(got) != 0 {
		t.Errorf("got %v, want empty", ids(got))
	}
	got = ids(nb.Query([]string{"one"}, []string{"a"}))
	if diff := cmp.Diff([]string{"b"}, got); diff != "" {
		t.Errorf("exclude by id mismatch (-want +got):\n%s", diff)
	}
}

func TestAdd_WritesFileAndIndexes(t *testing.T) {
	nb, dir := fixture(t, nil)
	n := models.Note{ID: "k", Title: "Kept", Text: "hello #greet\n", Tags: models.NewTagSet("greet")}
	if err := nb.Add(n); err != nil {
		t.Fatalf("Add: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "k.md"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "# #k Kept\n\nhello #greet\n" {
		t.Errorf("file = %q", data)
	}
	if got := ids(nb.Query([]string{"greet"}, nil)); len(got) != 1 || got[0] != "k" {
		t.Errorf("query = %v", got)
	}

	// Reopening sees the same note.
	store, _ := storage.NewFS(dir)
	again, err := Open(store, quiet)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, ok := again.Get("k")
	if !ok {
		t.Fatal("note missing after reopen")
	}
	if diff := cmp.Diff(n, got); diff != "" {
		t.Errorf("reopened note mismatch (-want +got):\n%s", diff)
	}
}

func TestAdd_PurgesStaleTags(t *testing.T) {
	nb, _ := fixture(t, map[string]string{
		"a.md": "# #a A\n\n#old #shared\n",
		"b.md": "# #b B\n\n#shared\n",
	})
	edited := models.Note{ID: "a", Title: "A", Text: "#new #shared\n", Tags: models.NewTagSet("new", "shared")}
	if err := nb.Add(edited); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if diff := cmp.Diff([]string{"new", "shared"}, nb.Tags()); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	// "old" has no entry any more, so it expands to itself and matches nothing.
	if got := nb.Query([]string{"old"}, nil); len(got) != 0 {
		t.Errorf("stale tag still matches %v", ids(got))
	}
	if diff := cmp.Diff([]string{"a", "b"}, ids(nb.Query([]string{"shared"}, nil))); diff != "" {
		t.Errorf("shared mismatch (-want +got):\n%s", diff)
	}
}

func TestAdd_EmptyIDRejected(t *testing.T) {
	nb, dir := fixture(t, nil)
	err := nb.Add(models.Note{Title: "no id"})
	if !errors.Is(err, apperr.ErrInvalidID) {
		t.Fatalf("err = %v, want ErrInvalidID", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("files written: %v", entries)
	}
}

func TestAdd_WriteFailureLeavesIndexUntouched(t *testing.T) {
	nb, dir := fixture(t, map[string]string{
		"a.md": "# #a A\n\n#one\n",
	})
	// Pull the directory out from under the notebook so the write fails.
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	err := nb.Add(models.Note{ID: "a", Title: "A", Text: "#two\n", Tags: models.NewTagSet("two")})
	if !errors.Is(err, apperr.ErrIO) {
		t.Fatalf("err = %v, want ErrIO", err)
	}
	if diff := cmp.Diff([]string{"one"}, nb.Tags()); diff != "" {
		t.Errorf("tags mutated (-want +got):\n%s", diff)
	}
}

func TestAdd_PathLikeIDStaysFlat(t *testing.T) {
	nb, dir := fixture(t, nil)
	if err := nb.Add(models.Note{ID: "proj/sub", Title: "P"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "proj%2Fsub.md")); err != nil {
		t.Errorf("expected escaped file name: %v", err)
	}
}

func TestReplace_RemovesDifferentlyNamedSource(t *testing.T) {
	nb, dir := fixture(t, map[string]string{
		"legacy-name.md": "# #x Old\n\nbody #t\n",
	})
	if err := nb.Add(models.Note{ID: "x", Title: "New", Text: "body #t\n", Tags: models.NewTagSet("t")}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != "x.md" {
		t.Errorf("files = %v, want only x.md", entries)
	}
}

func TestReplace_RenamesIdentifier(t *testing.T) {
	nb, dir := fixture(t, map[string]string{
		"my note.md": "plain body #t\n",
	})
	if !nb.Has("my note") {
		t.Fatal("precondition: stem identifier")
	}
	if err := nb.Replace("my note", models.Note{ID: "fixed", Text: "plain body #t\n", Tags: models.NewTagSet("t")}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if nb.Has("my note") {
		t.Error("old identifier still present")
	}
	if diff := cmp.Diff([]string{"fixed"}, ids(nb.Query([]string{"t"}, nil))); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(filepath.Join(dir, "my note.md")); !os.IsNotExist(err) {
		t.Errorf("old file still present: %v", err)
	}
}

func TestListings(t *testing.T) {
	nb, _ := fixture(t, map[string]string{
		"b.md": "# #b Bee\n\n#work/alpha #home\n",
		"a.md": "# #a Ay\n\n#work/beta\n",
	})
	if diff := cmp.Diff([]string{"home", "work/alpha", "work/beta"}, nb.Tags()); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"work/alpha", "work/beta"}, nb.SearchTags("work/")); diff != "" {
		t.Errorf("search mismatch (-want +got):\n%s", diff)
	}
	want := []models.Entry{{ID: "a", Title: "Ay"}, {ID: "b", Title: "Bee"}}
	if diff := cmp.Diff(want, nb.Entries()); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestQuery_ReturnsCopies(t *testing.T) {
	nb, _ := fixture(t, map[string]string{"a.md": "# #a A\n\n#one\n"})
	got := nb.Query(nil, nil)
	got[0].Tags.Add("mutated")
	if n, _ := nb.Get("a"); n.HasTag("mutated") {
		t.Error("caller mutation leaked into the notebook")
	}
}
