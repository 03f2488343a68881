package fileid

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestFromPath(t *testing.T) {
	id1 := FromPath("/export", "/export/posts/hello.md")
	id2 := FromPath("/export", "/export/posts/hello.md")
	if id1 != id2 {
		t.Errorf("same path should give same ID: %q vs %q", id1, id2)
	}
	if !strings.HasPrefix(id1, prefix) {
		t.Errorf("ID should have prefix %q: got %q", prefix, id1)
	}
	if len(id1) != len(prefix)+2*idBytes {
		t.Errorf("unexpected ID length: %q", id1)
	}
}

func TestFromPath_differentPaths(t *testing.T) {
	if FromPath("/export", "/export/a.md") == FromPath("/export", "/export/b.md") {
		t.Error("different paths should give different IDs")
	}
}

func TestFromPath_relativeToRoot(t *testing.T) {
	a := FromPath("/srv/export", "/srv/export/posts/hello.md")
	b := FromPath("/backup/export", filepath.Join("/backup/export", "posts", "hello.md"))
	if a != b {
		t.Errorf("moving the export root should keep IDs: %q vs %q", a, b)
	}
}

func TestFromPath_normalized(t *testing.T) {
	id1 := FromPath("", "/foo/bar")
	id2 := FromPath("", "/foo/bar/")
	id3 := FromPath("", "/foo/./bar")
	if id1 != id2 || id1 != id3 {
		t.Errorf("equivalent paths should match: %q %q %q", id1, id2, id3)
	}
}

func TestFromPath_outsideRoot(t *testing.T) {
	if FromPath("/export", "/other/a.md") != FromPath("", "/other/a.md") {
		t.Error("paths outside root should hash the cleaned path")
	}
}

func TestChecksum(t *testing.T) {
	if Checksum([]byte("a")) == Checksum([]byte("b")) {
		t.Error("different content should give different checksums")
	}
	if got := Checksum(nil); len(got) != 64 {
		t.Errorf("checksum length: got %d", len(got))
	}
}
