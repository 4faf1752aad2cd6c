package version

import "testing"

func TestString(t *testing.T) {
	oldV, oldSHA, oldBuilt := Version, GitSHA, BuildTime
	defer func() { Version, GitSHA, BuildTime = oldV, oldSHA, oldBuilt }()

	Version, GitSHA, BuildTime = "1.2.3", "abc123", "2026-01-01"
	want := "mathviz 1.2.3 (git abc123, built 2026-01-01)"
	if got := String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
