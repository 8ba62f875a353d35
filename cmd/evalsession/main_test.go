package main

import "testing"

func TestWantsTransport(t *testing.T) {
	cases := []struct {
		want, name string
		expect     bool
	}{
		{"sse", "sse", true},
		{"sse", "websocket", false},
		{"websocket", "websocket", true},
		{"both", "sse", true},
		{"both", "websocket", true},
	}
	for _, c := range cases {
		if got := wantsTransport(c.want, c.name); got != c.expect {
			t.Errorf("wantsTransport(%q, %q) = %v, want %v", c.want, c.name, got, c.expect)
		}
	}
}
