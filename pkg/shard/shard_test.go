package shard

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFlat(t *testing.T, dir string, names ...string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestSegment(t *testing.T) {
	cases := []struct {
		id    string
		depth int
		want  string
	}{
		{"ab12cd", 0, ""},
		{"ab12cd", 1, "A"},
		{"ab12cd", 2, "AB"},
		{"ab12cd", 4, "AB12"},
		{"ab", 5, "AB"}, // depth beyond id length
	}
	for _, tc := range cases {
		if got := Segment(tc.id, tc.depth); got != tc.want {
			t.Errorf("Segment(%q, %d) = %q, want %q", tc.id, tc.depth, got, tc.want)
		}
	}
}

func TestDetectDepth(t *testing.T) {
	dir := t.TempDir()

	if got := DetectDepth(filepath.Join(dir, "missing")); got != 0 {
		t.Errorf("missing dir depth = %d, want 0", got)
	}

	flat := filepath.Join(dir, "flat")
	writeFlat(t, flat, "ab12.atom", "cd34.atom")
	if got := DetectDepth(flat); got != 0 {
		t.Errorf("flat dir depth = %d, want 0", got)
	}

	sharded := filepath.Join(dir, "sharded")
	if err := os.MkdirAll(filepath.Join(sharded, "AB"), 0o755); err != nil {
		t.Fatal(err)
	}
	if got := DetectDepth(sharded); got != 2 {
		t.Errorf("sharded dir depth = %d, want 2", got)
	}

	// Mixed depths from an interrupted expansion report the deepest level.
	if err := os.MkdirAll(filepath.Join(sharded, "CD1"), 0o755); err != nil {
		t.Fatal(err)
	}
	if got := DetectDepth(sharded); got != 3 {
		t.Errorf("mixed dir depth = %d, want 3", got)
	}
}

func TestShouldExpand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "topic")
	writeFlat(t, dir, "a.atom", "b.atom", "c.atom")

	if ShouldExpand(dir, 3) {
		t.Error("ShouldExpand at exactly the limit = true, want false")
	}
	if !ShouldExpand(dir, 2) {
		t.Error("ShouldExpand above the limit = false, want true")
	}
	if ShouldExpand(filepath.Join(dir, "missing"), 1) {
		t.Error("ShouldExpand on missing dir = true, want false")
	}
	// Non-positive limits fall back to the default.
	if ShouldExpand(dir, 0) {
		t.Error("ShouldExpand with default limit = true for 3 entries")
	}
}

func TestBuildPaths(t *testing.T) {
	got := BuildAtomPath("/base", "short", "learning", "golang", "ab12", ".atom", 2)
	want := filepath.Join("/base", "short", "learning", "golang", "AB", "ab12.atom")
	if got != want {
		t.Errorf("BuildAtomPath = %q, want %q", got, want)
	}

	got = BuildKnowletPath("/base", "learning", "golang", "ff99", ".knowlet", 1)
	want = filepath.Join("/base", "knowlet", "learning", "golang", "F", "ff99.knowlet")
	if got != want {
		t.Errorf("BuildKnowletPath = %q, want %q", got, want)
	}

	// Depth 0 keeps the layout flat.
	got = BuildAtomPath("/base", "short", "learning", "golang", "ab12", ".atom", 0)
	want = filepath.Join("/base", "short", "learning", "golang", "ab12.atom")
	if got != want {
		t.Errorf("flat BuildAtomPath = %q, want %q", got, want)
	}
}

func TestExpand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "golang")
	writeFlat(t, dir, "ab12.atom", "cd34.atom", "notes.txt")

	depth, err := Expand(dir, ".atom", 0)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if depth != 1 {
		t.Fatalf("depth = %d, want 1", depth)
	}

	for _, p := range []string{
		filepath.Join(dir, "A", "ab12.atom"),
		filepath.Join(dir, "C", "cd34.atom"),
	} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected file at %s: %v", p, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "ab12.atom")); !os.IsNotExist(err) {
		t.Error("old flat file still present after expansion")
	}
	// Files with other extensions are left alone.
	if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
		t.Errorf("unrelated file was moved: %v", err)
	}
}

func TestExpand_DeepensAndPrunes(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "golang")
	writeFlat(t, dir, "ab12.atom", "ax34.atom")

	depth, err := Expand(dir, ".atom", 0)
	if err != nil || depth != 1 {
		t.Fatalf("first expand: depth=%d err=%v", depth, err)
	}
	depth, err = Expand(dir, ".atom", depth)
	if err != nil || depth != 2 {
		t.Fatalf("second expand: depth=%d err=%v", depth, err)
	}

	for _, p := range []string{
		filepath.Join(dir, "AB", "ab12.atom"),
		filepath.Join(dir, "AX", "ax34.atom"),
	} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected file at %s: %v", p, err)
		}
	}
	// The depth-1 shard directory must be pruned once emptied.
	if _, err := os.Stat(filepath.Join(dir, "A")); !os.IsNotExist(err) {
		t.Error("empty depth-1 shard directory not pruned")
	}
}

func TestExpand_DepthCap(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "golang")
	writeFlat(t, dir, "ab12.atom")

	depth, err := Expand(dir, ".atom", DepthMax)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if depth != DepthMax {
		t.Errorf("depth = %d, want capped at %d", depth, DepthMax)
	}
	if _, err := os.Stat(filepath.Join(dir, "ab12.atom")); err != nil {
		t.Errorf("file moved despite depth cap: %v", err)
	}
}
