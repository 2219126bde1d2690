package swapclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/starford/chordbook/internal/readiness"
)

func TestConvert_PostsFormWithToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("authorization = %q", got)
		}
		if r.Header.Get("HX-Request") != "true" {
			t.Error("missing HX-Request header")
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("content") != "C\nla" || r.PostForm.Get("textarea_name") != "text_content_2" {
			t.Errorf("form = %v", r.PostForm)
		}
		_, _ = w.Write([]byte(`<div class="chordpro-field">ok</div>`))
	}))
	defer srv.Close()

	c, err := New(Config{Endpoint: srv.URL + "/convert-to-chordpro/", Token: "secret"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	form := url.Values{}
	form.Set("content", "C\nla")
	form.Set("textarea_id", "ta2")
	form.Set("textarea_name", "text_content_2")

	got, err := c.Convert(context.Background(), form)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if got != `<div class="chordpro-field">ok</div>` {
		t.Errorf("body = %q", got)
	}
}

func TestConvert_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, err := New(Config{Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := c.Convert(context.Background(), url.Values{}); !errors.Is(err, ErrStatus) {
		t.Errorf("err = %v, want ErrStatus", err)
	}
}

func TestNew_InvalidEndpoint(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for empty endpoint")
	}
}

func TestReadyCheck(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health/ready" {
			t.Errorf("path = %s", r.URL.Path)
		}
		hits++
		if hits < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := New(Config{Endpoint: srv.URL + "/convert-to-chordpro/"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	gate := readiness.New("server", c.ReadyCheck(), readiness.Config{
		InitialInterval: time.Millisecond,
		MaxElapsed:      time.Second,
	})
	if err := gate.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if hits != 2 {
		t.Errorf("hits = %d, want 2", hits)
	}
}
