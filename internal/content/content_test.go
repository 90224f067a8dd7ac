package content

import "testing"

func TestPlainTextStripsMarkup(t *testing.T) {
	in := `<article><h1>Harbour works begin</h1><p>The council confirmed <b>funding</b> today.</p><script>track()</script></article>`
	got := PlainText(in)
	want := "Harbour works begin The council confirmed funding today."
	if got != want {
		t.Errorf("PlainText = %q, want %q", got, want)
	}
}

func TestPlainTextKeepsPlainInput(t *testing.T) {
	got := PlainText("just  a   plain\n\nsentence")
	if got != "just a plain sentence" {
		t.Errorf("PlainText = %q", got)
	}
}

func TestWordCount(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 0},
		{"plain", "three little words", 3},
		{"html", "<p>one <em>two</em> three four</p>", 4},
		{"script ignored", "<p>kept</p><script>var a = 1;</script>", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WordCount(tt.in); got != tt.want {
				t.Errorf("WordCount(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestExcerpt(t *testing.T) {
	in := "<p>alpha beta gamma delta epsilon</p>"
	if got := Excerpt(in, 3); got != "alpha beta gamma…" {
		t.Errorf("Excerpt = %q", got)
	}
	if got := Excerpt(in, 10); got != "alpha beta gamma delta epsilon" {
		t.Errorf("short body should not be cut, got %q", got)
	}
}
