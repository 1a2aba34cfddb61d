package content

import (
	"context"
	"testing"

	"telemetry_backend/platform/apperr"
	"telemetry_backend/platform/logger"
)

type fakeStore struct {
	values    map[string]string
	localized map[string][]string
	generic   map[string][]string
}

func (f *fakeStore) FindValue(_ context.Context, _ int, key string) (string, bool, error) {
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeStore) ListLocalized(_ context.Context, _ int, prefix, langKey string) ([]string, error) {
	return f.localized[prefix+"/"+langKey], nil
}

func (f *fakeStore) ListGeneric(_ context.Context, _ int, prefix string) ([]string, error) {
	return f.generic[prefix], nil
}

func newTestResolver(store *fakeStore) *Resolver {
	return NewResolver(store, logger.New("development"))
}

func TestTextCascade(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]string
		langKey string
		want    string
	}{
		{
			name:    "localized value wins",
			values:  map[string]string{"intro_message_hindi": "नमस्ते", "intro_message_english": "hello", "intro_message": "hi"},
			langKey: "hindi",
			want:    "नमस्ते",
		},
		{
			name:    "falls back to english",
			values:  map[string]string{"intro_message_english": "hello", "intro_message": "hi"},
			langKey: "hindi",
			want:    "hello",
		},
		{
			name:    "falls back to bare key",
			values:  map[string]string{"intro_message": "hi"},
			langKey: "hindi",
			want:    "hi",
		},
		{
			name:    "empty language key means english",
			values:  map[string]string{"intro_message_english": "hello"},
			langKey: "",
			want:    "hello",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(&fakeStore{values: tt.values})
			got, err := r.Text(context.Background(), 1, "intro_message", tt.langKey)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestTextEmbeddedDefault(t *testing.T) {
	r := newTestResolver(&fakeStore{})

	got, err := r.Text(context.Background(), 1, "language_selection_prompt", "hindi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Please select your preferred language:" {
		t.Fatalf("expected embedded default, got %q", got)
	}
}

func TestTextUnknownCategory(t *testing.T) {
	r := newTestResolver(&fakeStore{})

	_, err := r.Text(context.Background(), 1, "nonexistent_prompt", "english")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOptionsLocalizedAllOrNothing(t *testing.T) {
	store := &fakeStore{
		localized: map[string][]string{"channel/hindi": {"नल", "टैंकर"}},
		generic:   map[string][]string{"channel": {"Tap", "Tanker", "Well"}},
	}
	r := newTestResolver(store)

	got, err := r.Options(context.Background(), 1, "channel", "hindi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "नल" {
		t.Fatalf("expected the localized set untouched by generic rows, got %v", got)
	}
}

func TestOptionsGenericFallback(t *testing.T) {
	store := &fakeStore{
		generic: map[string][]string{"channel": {"Tap", "Tanker"}},
	}
	r := newTestResolver(store)

	got, err := r.Options(context.Background(), 1, "channel", "hindi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[1] != "Tanker" {
		t.Fatalf("expected generic set, got %v", got)
	}
}

func TestOptionsNoneConfigured(t *testing.T) {
	r := newTestResolver(&fakeStore{})

	_, err := r.Options(context.Background(), 1, "channel", "english")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLanguageKeyFor(t *testing.T) {
	store := &fakeStore{
		generic: map[string][]string{"language": {"English", "हिंदी"}},
	}
	r := newTestResolver(store)
	ctx := context.Background()

	if got := r.LanguageKeyFor(ctx, 1, 2); got != "hindi" {
		t.Fatalf("expected hindi for id 2, got %q", got)
	}
	if got := r.LanguageKeyFor(ctx, 1, 0); got != "english" {
		t.Fatalf("expected english for id 0, got %q", got)
	}
	if got := r.LanguageKeyFor(ctx, 1, 9); got != "english" {
		t.Fatalf("expected english for out-of-range id, got %q", got)
	}
}

func TestNormalizeLanguageKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"हिंदी", "hindi"},
		{"हिन्दी", "hindi"},
		{"Hindi", "hindi"},
		{"English", "english"},
		{"Inglish", "english"},
		{"  Tamil  ", "tamil"},
		{"Odia (Oriya)", "odia_oriya"},
	}
	for _, tt := range tests {
		if got := NormalizeLanguageKey(tt.in); got != tt.want {
			t.Errorf("NormalizeLanguageKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderLeavesUnknownPlaceholders(t *testing.T) {
	got := Render("Hello {name}, your scheme is {scheme}", map[string]string{"name": "Asha"})
	if got != "Hello Asha, your scheme is {scheme}" {
		t.Fatalf("unexpected render result: %q", got)
	}
}
