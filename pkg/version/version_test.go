package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestUserAgent(t *testing.T) {
	ua := UserAgent("pkmn-go")
	if !strings.HasPrefix(ua, "pkmn-go/"+Version+" ") {
		t.Fatalf("unexpected user agent %q", ua)
	}
	if !strings.Contains(ua, runtime.GOOS) {
		t.Fatalf("user agent %q lacks platform", ua)
	}
}

func TestGet(t *testing.T) {
	v := Get()
	if v.Version != Version || v.Commit != Commit {
		t.Fatalf("got %+v", v)
	}
	if v.GoVersion == "" || !strings.Contains(v.Platform, "/") {
		t.Fatalf("missing runtime info: %+v", v)
	}
}
