package mcpserver

import (
	"context"
	"encoding/json"
	"html"
	"testing"
)

const ugContent = "[Verse 1]\r\n[tab][ch]C[/ch] [ch]G[/ch] [ch]Am[/ch] [ch]F[/ch]\r\nHello there my friend[/tab]"

func storePage(t *testing.T, content string) []byte {
	t.Helper()
	var st ugStore
	st.Store.Page.Data.TabView.WikiTab.Content = content
	blob, err := json.Marshal(st)
	if err != nil {
		t.Fatal(err)
	}
	return []byte(`<!DOCTYPE html><html><head><title>Hello Chords</title></head><body>` +
		`<div class="js-store" data-content="` + html.EscapeString(string(blob)) + `"></div>` +
		`</body></html>`)
}

func TestExtractPageSheet(t *testing.T) {
	tests := []struct {
		name string
		page []byte
		want string
		ok   bool
	}{
		{"page state", storePage(t, ugContent), "[Verse 1]\n[tab][ch]C[/ch] [ch]G[/ch] [ch]Am[/ch] [ch]F[/ch]\nHello there my friend[/tab]", true},
		{"pre block", []byte("<html><body><pre>G  D\nla la</pre></body></html>"), "G  D\nla la", true},
		{"empty state falls back to pre", append(storePage(t, " "), []byte("<pre>Am\nhey</pre>")...), "Am\nhey", true},
		{"nothing", []byte("<html><body><p>hi</p></body></html>"), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractPageSheet(tt.page)
			if ok != tt.ok || got != tt.want {
				t.Errorf("extractPageSheet = %q, %v; want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestStripUGMarkup(t *testing.T) {
	in := "[tab][ch]Em[/ch]   [ch]C[/ch]\nrunning[/tab]\n[Chorus]"
	if got := stripUGMarkup(in); got != "Em   C\nrunning\n[Chorus]" {
		t.Errorf("stripUGMarkup = %q", got)
	}
}

func TestImportSong_TabPage(t *testing.T) {
	srv, _ := testServer(t)
	srv.fetcher = func(context.Context, string) ([]byte, error) {
		return storePage(t, ugContent), nil
	}

	r := callTool(t, srv, "import_song", map[string]any{
		"url": "https://tabs.example.com/tab/someone/hello-chords-123",
	})
	if r.IsError {
		t.Fatalf("import error: %s", resultText(r))
	}
	if got := resultText(r); got != "created: hello-chords-123.cho (annotated)" {
		t.Errorf("result = %q", got)
	}
	if text := resultText(callTool(t, srv, "read_song", map[string]any{"path": "hello-chords-123.cho"})); text != converted {
		t.Errorf("stored = %q, want converted sheet", text)
	}
}

func TestImportSong_PageWithoutSheet(t *testing.T) {
	srv, _ := testServer(t)
	srv.fetcher = func(context.Context, string) ([]byte, error) {
		return []byte("<html><body><p>404</p></body></html>"), nil
	}
	r := callTool(t, srv, "import_song", map[string]any{"url": "https://tabs.example.com/x"})
	if !r.IsError || resultText(r) != "no chord sheet found in page" {
		t.Errorf("result = %q", resultText(r))
	}
}

func TestSongNameFromURL(t *testing.T) {
	for in, want := range map[string]string{
		"https://x.example.com/a/My%20Song!.txt": "My_Song_.txt",
		"https://x.example.com/tab/abc-123":      "abc-123",
	} {
		if got := songNameFromURL(in); got != want {
			t.Errorf("songNameFromURL(%q) = %q, want %q", in, got, want)
		}
	}
	if got := songNameFromURL("https://x.example.com/"); len(got) != len("00000000-0000-0000-0000-000000000000.cho") {
		t.Errorf("root path name = %q, want uuid", got)
	}
}
