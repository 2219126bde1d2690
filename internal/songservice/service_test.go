package songservice

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/chordbook/internal/apperr"
	"github.com/starford/chordbook/internal/testutil"
)

const tabSheet = testutil.TabSheet

func newService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	_, store := testutil.TestVault(t)
	return NewService(store, testutil.TestDB(t), opts...)
}

func TestCreateAndGetSong(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	content := "---\ntitle: Hello\nartist: Someone\ntags: [folk]\n---\n" + tabSheet
	created, err := svc.CreateSong(ctx, "hello.cho", []byte(content))
	if err != nil {
		t.Fatalf("CreateSong: %v", err)
	}
	if created.Title != "Hello" || created.Artist != "Someone" {
		t.Errorf("created = %+v", created)
	}
	if created.Format != "tablature" {
		t.Errorf("format = %q, want tablature", created.Format)
	}
	if diff := cmp.Diff([]string{"C", "G", "Am", "F"}, created.Chords); diff != "" {
		t.Errorf("chords mismatch (-want +got):\n%s", diff)
	}

	got, err := svc.GetSong(ctx, "hello.cho")
	if err != nil {
		t.Fatalf("GetSong: %v", err)
	}
	if got.Checksum != created.Checksum {
		t.Errorf("checksum = %q, want %q", got.Checksum, created.Checksum)
	}

	paths, err := svc.SongsWithChord(ctx, "Am")
	if err != nil {
		t.Fatalf("SongsWithChord: %v", err)
	}
	if diff := cmp.Diff([]string{"hello.cho"}, paths); diff != "" {
		t.Errorf("songs mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateSong_Duplicate(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	if _, err := svc.CreateSong(ctx, "dup.cho", []byte("{title: Dup}")); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateSong(ctx, "dup.cho", []byte("{title: Dup}")); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestCreateSong_RejectsNonSongPath(t *testing.T) {
	svc := newService(t)
	if _, err := svc.CreateSong(context.Background(), "notes.md", []byte("x")); !errors.Is(err, apperr.ErrInvalidPath) {
		t.Errorf("err = %v, want ErrInvalidPath", err)
	}
}

func TestUpdateSong_IfMatch(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	created, err := svc.CreateSong(ctx, "u.cho", []byte("{title: One}"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.UpdateSong(ctx, "u.cho", []byte("{title: Two}"), "stale"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale If-Match: err = %v, want ErrConflict", err)
	}
	updated, err := svc.UpdateSong(ctx, "u.cho", []byte("{title: Two}"), created.Checksum)
	if err != nil {
		t.Fatalf("UpdateSong: %v", err)
	}
	if updated.Title != "Two" {
		t.Errorf("title = %q, want Two", updated.Title)
	}
	if _, err := svc.UpdateSong(ctx, "missing.cho", []byte("x"), ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing: err = %v, want ErrNotFound", err)
	}
}

func TestDeleteSong(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	if _, err := svc.CreateSong(ctx, "d.cho", []byte("[Am]la")); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteSong(ctx, "d.cho"); err != nil {
		t.Fatalf("DeleteSong: %v", err)
	}
	if _, err := svc.GetSong(ctx, "d.cho"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := svc.DeleteSong(ctx, "d.cho"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete: err = %v, want ErrNotFound", err)
	}
}

func TestListSongs(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	_, _ = svc.CreateSong(ctx, "a.cho", []byte("{title: A}\n{key: G}"))
	_, _ = svc.CreateSong(ctx, "b.cho", []byte(tabSheet))

	items, total, err := svc.ListSongs(ctx, 10, 0, "", "")
	if err != nil {
		t.Fatalf("ListSongs: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("total = %d, items = %d, want 2", total, len(items))
	}
	if items[0].Key != "G" || items[1].Format != "tablature" {
		t.Errorf("items = %+v", items)
	}
	if items[0].Tags == nil {
		t.Error("tags should be non-nil")
	}
}

type upperConverter struct{ calls int }

func (u *upperConverter) ConvertToAnnotated(text string) string {
	u.calls++
	return strings.ToUpper(text)
}

func TestConvertOnSave(t *testing.T) {
	conv := &upperConverter{}
	svc := newService(t, WithConvertOnSave(conv))
	ctx := context.Background()

	tab := "[Verse 1]\nC G Am F\nHello there my friend"
	want := "[VERSE 1]\nC G AM F\nHELLO THERE MY FRIEND"
	got, err := svc.CreateSong(ctx, "c.cho", []byte(tab))
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != want {
		t.Errorf("content = %q", got.Content)
	}
	raw, err := svc.ReadRaw(ctx, "c.cho")
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != want {
		t.Errorf("stored = %q", raw)
	}

	// Already annotated content is stored as is.
	got, err = svc.CreateSong(ctx, "d.cho", []byte("{title: quiet}\n[C]Hello"))
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != "{title: quiet}\n[C]Hello" {
		t.Errorf("annotated content changed: %q", got.Content)
	}
	if conv.calls != 1 {
		t.Errorf("converter calls = %d, want 1", conv.calls)
	}
}

func TestMoveSong(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	if _, err := svc.CreateSong(ctx, "old.cho", []byte("{title: Moving}\n[Em]la")); err != nil {
		t.Fatal(err)
	}
	_, _ = svc.CreateSong(ctx, "taken.cho", []byte("[C]x"))

	moved, err := svc.MoveSong(ctx, "old.cho", "folk/new.cho")
	if err != nil {
		t.Fatalf("MoveSong: %v", err)
	}
	if moved.Path != "folk/new.cho" || moved.Title != "Moving" {
		t.Errorf("moved = %+v", moved)
	}
	songs, _ := svc.SongsWithChord(ctx, "Em")
	if diff := cmp.Diff([]string{"folk/new.cho"}, songs); diff != "" {
		t.Errorf("index not moved (-want +got):\n%s", diff)
	}
	if _, err := svc.GetSong(ctx, "old.cho"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("old path err = %v, want ErrNotFound", err)
	}

	for _, tc := range []struct {
		from, to string
		want     error
	}{
		{"missing.cho", "x.cho", apperr.ErrNotFound},
		{"folk/new.cho", "taken.cho", apperr.ErrAlreadyExists},
		{"folk/new.cho", "new.md", apperr.ErrInvalidPath},
	} {
		if _, err := svc.MoveSong(ctx, tc.from, tc.to); !errors.Is(err, tc.want) {
			t.Errorf("MoveSong(%q, %q) = %v, want %v", tc.from, tc.to, err, tc.want)
		}
	}
}

func TestGetSong_FileWrittenOutsideService(t *testing.T) {
	vaultDir, store := testutil.TestVault(t)
	svc := NewService(store, testutil.TestDB(t))
	testutil.WriteSong(t, vaultDir, "sets/outside.cho", "{title: Outside}\n[G]la")

	got, err := svc.GetSong(context.Background(), "sets/outside.cho")
	if err != nil {
		t.Fatalf("GetSong: %v", err)
	}
	if got.Title != "Outside" || got.Format != "annotated" {
		t.Errorf("song = %+v", got)
	}
	if err := svc.IndexFile(got.Path, []byte(got.Content)); err != nil {
		t.Fatalf("IndexFile: %v", err)
	}
	paths, err := svc.SongsWithChord(context.Background(), "G")
	if err != nil {
		t.Fatalf("SongsWithChord: %v", err)
	}
	if diff := cmp.Diff([]string{"sets/outside.cho"}, paths); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
}
