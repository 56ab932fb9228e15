package tgui

import "testing"

func TestEscapingHelpers(t *testing.T) {
	if got := B("R&D <lead>"); got != "<b>R&amp;D &lt;lead&gt;</b>" {
		t.Fatalf("B = %q", got)
	}
	if got := Link("View", `https://x/a"b`); got != `<a href="https://x/a&#34;b">View</a>` {
		t.Fatalf("Link = %q", got)
	}
}

func TestTruncRunes(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 3, "hel…"},
		{"héllo wörld", 4, "héll…"},
		{"anything", 0, ""},
	}
	for _, c := range cases {
		if got := TruncRunes(c.in, c.n); got != c.want {
			t.Fatalf("TruncRunes(%q, %d) = %q, want %q", c.in, c.n, got, c.want)
		}
	}
}

func TestLenCountsRunes(t *testing.T) {
	if got := Len("日本語"); got != 3 {
		t.Fatalf("Len = %d", got)
	}
}
