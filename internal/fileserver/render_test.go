package fileserver

import (
	"bytes"
	"strings"
	"testing"
)

func TestRenderIndex(t *testing.T) {
	var buf bytes.Buffer
	err := RenderIndex(&buf, Index{
		Path:   "/docs/",
		Parent: "/latest/",
		Entries: []Entry{
			{Name: "sub", IsDir: true, Size: "-", Modified: "2024-01-01 00:00:00", Link: "/latest/docs/sub"},
			{Name: "a.txt", Size: "12 B", Modified: "2024-01-02 00:00:00", Link: "/latest/docs/a.txt"},
		},
	})
	if err != nil {
		t.Fatalf("RenderIndex() error = %v", err)
	}
	html := buf.String()

	for _, want := range []string{
		`<!DOCTYPE HTML PUBLIC "-//W3C//DTD HTML 3.2 Final//EN">`,
		`<title>Index of /docs/</title>`,
		`<h1>Index of /docs/</h1>`,
		`<a href="/latest/">../</a>`,
		`<a href="/latest/docs/sub">sub/</a>`,
		`<a href="/latest/docs/a.txt">a.txt</a>`,
		`<td align="right">12 B</td>`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered page missing %q", want)
		}
	}

	if strings.Index(html, "sub/") > strings.Index(html, "a.txt") {
		t.Error("entries rendered out of order")
	}
}

func TestRenderIndex_RootHasNoParent(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderIndex(&buf, Index{Path: "/"}); err != nil {
		t.Fatalf("RenderIndex() error = %v", err)
	}
	if strings.Contains(buf.String(), "../") {
		t.Error("root index should not contain a parent row")
	}
}

func TestRenderIndex_EscapesNames(t *testing.T) {
	var buf bytes.Buffer
	err := RenderIndex(&buf, Index{
		Path:    "/",
		Entries: []Entry{{Name: "<script>alert(1)</script>", Size: "1 B", Modified: "-", Link: "/x"}},
	})
	if err != nil {
		t.Fatalf("RenderIndex() error = %v", err)
	}
	if strings.Contains(buf.String(), "<script>") {
		t.Error("entry name was not HTML-escaped")
	}
}
