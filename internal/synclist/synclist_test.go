package synclist

import "testing"

func TestNullListAlwaysSyncs(t *testing.T) {
	l := New(ModeNull)
	if !l.NeedSync("/anything") {
		t.Fatalf("a null sync list must allow every path")
	}
	l.Insert("/foo") // no-op in null mode
	if len(l.List()) != 0 {
		t.Fatalf("null sync list must ignore inserts")
	}
}

func TestWhiteListSelfChildAndParent(t *testing.T) {
	l := New(ModeWhite)
	l.Insert("/a/b")

	cases := []struct {
		path string
		want PathType
	}{
		{"/a/b", PathTypeSelf},
		{"/a", PathTypeParent},
		{"/a/b/c.txt", PathTypeChild},
		{"/z", PathTypeStranger},
	}
	for _, c := range cases {
		if got := l.PathType(c.path); got != c.want {
			t.Errorf("PathType(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestWhiteListNeedSync(t *testing.T) {
	l := New(ModeWhite)
	l.Insert("/docs")

	for _, p := range []string{"/docs", "/docs/readme.md", "/"} {
		if !l.NeedSync(p) {
			t.Errorf("NeedSync(%q) = false, want true", p)
		}
	}
	if l.NeedSync("/other/file.txt") {
		t.Fatalf("a stranger path must not sync under a white list")
	}

	l.Remove("/docs")
	if l.NeedSync("/docs/readme.md") {
		t.Fatalf("removed entries must stop syncing")
	}
}

func TestRegistryDefaultsToSyncWhenUnregistered(t *testing.T) {
	r := NewRegistry()
	if !r.NeedSync(42, "/whatever") {
		t.Fatalf("a tree with no registered list should default to syncing everything")
	}

	r.Add(42, ModeWhite)
	if r.NeedSync(42, "/whatever") {
		t.Fatalf("an empty white list should reject unlisted paths")
	}

	l, ok := r.Get(42)
	if !ok {
		t.Fatalf("expected registered list for tree 42")
	}
	l.Insert("/whatever")
	if !r.NeedSync(42, "/whatever") {
		t.Fatalf("expected /whatever to sync after insert")
	}

	r.Remove(42)
	if !r.NeedSync(42, "/whatever") {
		t.Fatalf("after removal the tree should fall back to syncing everything")
	}
}
