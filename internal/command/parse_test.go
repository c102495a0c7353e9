package command

import "testing"

func TestParse(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		text   string
		author string
		target string
		ok     bool
	}{
		{name: "analyze me", text: "please analyze me", author: "alice.bsky.social", target: "alice.bsky.social", ok: true},
		{name: "analyze me mixed case", text: "PLEASE Analyze ME!", author: "alice.bsky.social", target: "alice.bsky.social", ok: true},
		{name: "bare handle qualified", text: "analyze @bob", author: "eve.bsky.social", target: "bob.bsky.social", ok: true},
		{name: "qualified handle unchanged", text: "analyze @carol.example.com", author: "eve.bsky.social", target: "carol.example.com", ok: true},
		{name: "first handle wins", text: "analyze @bob and @carol.example.com", author: "eve.bsky.social", target: "bob.bsky.social", ok: true},
		{name: "keyword required", text: "hello world", author: "eve.bsky.social"},
		{name: "empty text", text: "", author: "eve.bsky.social"},
		{name: "whitespace text", text: "   \n\t ", author: "eve.bsky.social"},
		{name: "keyword without handle", text: "analyze this chart", author: "eve.bsky.social"},
		{name: "keyword case insensitive", text: "ANALYZE @dora", author: "eve.bsky.social", target: "dora.bsky.social", ok: true},
		{name: "handle lowered to canonical form", text: "analyze @Dora", author: "eve.bsky.social", target: "dora.bsky.social", ok: true},
		{name: "hyphenated handle", text: "analyze @big-corp.example.com", author: "eve.bsky.social", target: "big-corp.example.com", ok: true},
		{name: "analyze me beats handle", text: "analyze me, not @bob", author: "alice.bsky.social", target: "alice.bsky.social", ok: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			target, ok := Parse(tt.text, tt.author)
			if ok != tt.ok {
				t.Fatalf("Parse(%q) ok = %v, want %v", tt.text, ok, tt.ok)
			}
			if target != tt.target {
				t.Fatalf("Parse(%q) = %q, want %q", tt.text, target, tt.target)
			}
		})
	}
}

func TestParseIsPure(t *testing.T) {
	t.Parallel()
	for i := 0; i < 5; i++ {
		target, ok := Parse("analyze @bob", "eve.bsky.social")
		if !ok || target != "bob.bsky.social" {
			t.Fatalf("iteration %d: Parse = (%q, %v)", i, target, ok)
		}
	}
}
