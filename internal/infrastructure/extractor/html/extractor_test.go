package html

import (
	"context"
	"strings"
	"testing"
)

func TestExtractKeepsVisibleTextOnly(t *testing.T) {
	page := `<html><head><title>Agents  guide</title><style>.x{}</style></head>
<body><script>var a = 1;</script><h1>Intro</h1><p>LangGraph builds <b>stateful</b> agents.</p><ul><li>one</li><li>two</li></ul></body></html>`

	got, err := NewExtractor().Extract(context.Background(), "page.html", []byte(page))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	want := "Agents guide\nIntro\nLangGraph builds stateful agents.\none\ntwo"
	if got != want {
		t.Fatalf("unexpected text:\n%q\nwant\n%q", got, want)
	}
	if strings.Contains(got, "var a") || strings.Contains(got, ".x{}") {
		t.Fatalf("script or style leaked: %q", got)
	}
}
