package gitstatus

import "testing"

func TestStaticChecker(t *testing.T) {
	c := &StaticChecker{DirtyPaths: map[string]bool{"a.txt": true, "b.txt": true}}

	dirty := c.Dirty([]string{"a.txt", "clean.txt", "b.txt"})
	if len(dirty) != 2 {
		t.Fatalf("dirty = %v, want 2 entries", dirty)
	}
	if dirty[0] != "a.txt" || dirty[1] != "b.txt" {
		t.Errorf("dirty = %v", dirty)
	}

	if got := c.Dirty(nil); len(got) != 0 {
		t.Errorf("empty input produced %v", got)
	}
}

func TestExecChecker_NonexistentPaths(t *testing.T) {
	c := &ExecChecker{Dir: t.TempDir()}
	// none of the paths exist, so no git process should even be needed
	if dirty := c.Dirty([]string{"/no/such/file-1", "/no/such/file-2"}); len(dirty) != 0 {
		t.Errorf("dirty = %v, want none", dirty)
	}
}

func TestExecChecker_OutsideRepository(t *testing.T) {
	dir := t.TempDir()
	c := &ExecChecker{Dir: dir}
	// git status fails outside a repository; the guard must stay quiet
	if dirty := c.Dirty([]string{dir}); len(dirty) != 0 {
		t.Errorf("dirty = %v, want none outside a repository", dirty)
	}
}
