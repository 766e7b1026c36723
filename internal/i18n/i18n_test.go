package i18n

import "testing"

func mustLoad(t *testing.T) *Catalog {
	t.Helper()
	cat, err := Load("en")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return cat
}

func TestLoadFlattensNamespaces(t *testing.T) {
	cat := mustLoad(t)

	if got := cat.T("en", "common.app.name", nil); got != "TaskHub" {
		t.Fatalf("common.app.name = %q", got)
	}
	if got := cat.T("en", "dashboard.activity.title", nil); got != "Recent activity" {
		t.Fatalf("dashboard.activity.title = %q", got)
	}
}

func TestLoadRejectsMissingDefault(t *testing.T) {
	if _, err := Load("zz"); err == nil {
		t.Fatal("expected error for default locale without a bundle")
	}
}

func TestInterpolation(t *testing.T) {
	cat := mustLoad(t)

	got := cat.T("en", "dashboard.stats.completion_rate", map[string]string{"rate": "70"})
	if got != "70% completion rate" {
		t.Fatalf("interpolated = %q", got)
	}

	// Unknown placeholders are left alone.
	got = cat.T("en", "dashboard.stats.completion_rate", map[string]string{"other": "x"})
	if got != "{rate}% completion rate" {
		t.Fatalf("got %q", got)
	}
}

func TestFallbacks(t *testing.T) {
	cat := mustLoad(t)

	// Unknown locale falls back to the default locale's message.
	if got := cat.T("zz", "common.app.name", nil); got != "TaskHub" {
		t.Fatalf("fallback = %q", got)
	}
	// Unknown key falls back to the key itself.
	if got := cat.T("en", "common.no.such.key", nil); got != "common.no.such.key" {
		t.Fatalf("missing key = %q", got)
	}
}

func TestHasAndLocales(t *testing.T) {
	cat := mustLoad(t)

	for _, loc := range []string{"en", "es", "fr"} {
		if !cat.Has(loc) {
			t.Errorf("Has(%q) = false", loc)
		}
	}
	if cat.Has("de") {
		t.Error("Has(de) = true")
	}
	if got := cat.Locales(); len(got) != 3 || got[0] != "en" {
		t.Fatalf("Locales() = %v", got)
	}
}

func TestMatch(t *testing.T) {
	cat := mustLoad(t)

	cases := []struct {
		prefs string
		want  string
	}{
		{"", "en"},
		{"garbage;;;", "en"},
		{"es", "es"},
		{"es-MX", "es"},
		{"fr-CA,fr;q=0.9", "fr"},
		{"de-DE,de;q=0.9", "en"},
		{"es;q=0.8,fr;q=0.9", "fr"},
	}
	for _, tc := range cases {
		if got := cat.Match(tc.prefs); got != tc.want {
			t.Errorf("Match(%q) = %q, want %q", tc.prefs, got, tc.want)
		}
	}
}
