package internal

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/chordbook/internal/sse"
)

func testRuntime(t *testing.T) *runtime {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Vault.Path = filepath.Join(dir, "vault")
	cfg.SQLite.Path = filepath.Join(dir, "chordbook.db")

	rt, err := openRuntime(cfg, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("openRuntime: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	return rt
}

func TestNewApplication_RequiresConfig(t *testing.T) {
	if _, err := newApplication(nil, io.Discard); err == nil {
		t.Fatal("expected error without config")
	}
	cfg := NewDefaultConfig()
	cfg.App.LogFormat = "xml"
	if _, err := newApplication([]Option{WithConfig(cfg)}, io.Discard); err == nil {
		t.Fatal("expected error for unknown log format")
	}
}

func TestOpenRuntime_ReadyAndConvertOnSave(t *testing.T) {
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Vault.Path = filepath.Join(dir, "vault")
	cfg.Vault.ConvertOnSave = true
	cfg.SQLite.Path = filepath.Join(dir, "chordbook.db")

	rt, err := openRuntime(cfg, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("openRuntime: %v", err)
	}
	defer rt.Close()

	if err := rt.gate.Wait(context.Background()); err != nil {
		t.Fatalf("gate: %v", err)
	}
	song, err := rt.songs.CreateSong(context.Background(), "tab.cho", []byte("[Verse 1]\nC G Am F\nHello there my friend"))
	if err != nil {
		t.Fatal(err)
	}
	if song.Format != "annotated" || !strings.Contains(song.Content, "{start_of_verse: Verse 1}") {
		t.Errorf("song not converted on save: %+v", song)
	}
}

func TestPublishRendered(t *testing.T) {
	rt := testRuntime(t)
	ctx := context.Background()
	if _, err := rt.songs.CreateSong(ctx, "live.cho", []byte("{title: Live}\n[C]Hello [G]world")); err != nil {
		t.Fatal(err)
	}

	broker := sse.NewBroker(time.Hour)
	defer broker.Close()
	ch := broker.Subscribe()
	defer broker.Unsubscribe(ch)

	rt.publishRendered(ctx, broker, "live.cho")

	got := map[string]string{}
	for len(got) < 2 {
		select {
		case msg := <-ch:
			s := string(msg)
			for _, typ := range []string{sse.TypePass, sse.TypeSongRendered} {
				if strings.Contains(s, "event: "+typ+"\n") {
					got[typ] = s
				}
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout, got %v", got)
		}
	}
	if !strings.Contains(got[sse.TypePass], `"trigger":"content-swapped"`) {
		t.Errorf("pass event = %q", got[sse.TypePass])
	}
	rendered := got[sse.TypeSongRendered]
	if !strings.Contains(rendered, `"path":"live.cho"`) || !strings.Contains(rendered, "chord-sheet-rendered") {
		t.Errorf("rendered event = %q", rendered)
	}
}

func TestPublishRendered_MissingSong(t *testing.T) {
	rt := testRuntime(t)
	broker := sse.NewBroker(time.Hour)
	defer broker.Close()
	ch := broker.Subscribe()
	defer broker.Unsubscribe(ch)

	rt.publishRendered(context.Background(), broker, "gone.cho")

	select {
	case msg := <-ch:
		t.Errorf("unexpected event %q", msg)
	case <-time.After(100 * time.Millisecond):
	}
}
