package config

import (
	"testing"
)

func TestFlatten_Simple(t *testing.T) {
	m := map[string]any{
		"a": "hello",
		"b": 42.0,
	}
	got := Flatten(m)
	if got["a"] != "hello" {
		t.Errorf("expected a=hello, got %v", got["a"])
	}
	if got["b"] != 42.0 {
		t.Errorf("expected b=42, got %v", got["b"])
	}
	if len(got) != 2 {
		t.Errorf("expected 2 keys, got %d", len(got))
	}
}

func TestFlatten_Nested(t *testing.T) {
	m := map[string]any{
		"gist": map[string]any{
			"id":    "abc123",
			"token": "ghp_test123",
		},
		"log_level": "info",
	}
	got := Flatten(m)
	if got["gist.id"] != "abc123" {
		t.Errorf("expected gist.id=abc123, got %v", got["gist.id"])
	}
	if got["gist.token"] != "ghp_test123" {
		t.Errorf("expected gist.token=ghp_test123, got %v", got["gist.token"])
	}
	if got["log_level"] != "info" {
		t.Errorf("expected log_level=info, got %v", got["log_level"])
	}
}

func TestFlatten_DeepNesting(t *testing.T) {
	m := map[string]any{
		"a": map[string]any{
			"b": map[string]any{
				"c": "deep",
			},
		},
	}
	got := Flatten(m)
	if got["a.b.c"] != "deep" {
		t.Errorf("expected a.b.c=deep, got %v", got["a.b.c"])
	}
}

func TestUnflatten(t *testing.T) {
	flat := map[string]any{
		"gist.id":       "abc123",
		"gist.filename": "registros.json",
		"log_level":     "debug",
	}
	got := Unflatten(flat)

	gist, ok := got["gist"].(map[string]any)
	if !ok {
		t.Fatalf("expected gist to be map, got %T", got["gist"])
	}
	if gist["id"] != "abc123" || gist["filename"] != "registros.json" {
		t.Errorf("unexpected gist map %v", gist)
	}
	if got["log_level"] != "debug" {
		t.Errorf("expected log_level=debug, got %v", got["log_level"])
	}
}

func TestFlattenUnflattenRoundTrip(t *testing.T) {
	original := map[string]any{
		"telegram": map[string]any{
			"token": "123:abc",
			"mode":  "polling",
		},
		"admin": map[string]any{
			"password": "hunter22",
		},
		"max_concurrent": 4.0,
	}
	restored := Unflatten(Flatten(original))

	tg := restored["telegram"].(map[string]any)
	if tg["token"] != "123:abc" || tg["mode"] != "polling" {
		t.Errorf("telegram mismatch: %v", tg)
	}
	admin := restored["admin"].(map[string]any)
	if admin["password"] != "hunter22" {
		t.Errorf("admin.password mismatch: %v", admin["password"])
	}
	if restored["max_concurrent"] != 4.0 {
		t.Errorf("max_concurrent mismatch: %v", restored["max_concurrent"])
	}
}

func TestMaskSecrets(t *testing.T) {
	flat := map[string]any{
		"gist.id":        "abc123",
		"gist.token":     "ghp_secret3456",
		"telegram.token": "123456:ABCDEF1234",
		"admin.password": "senhaforte",
	}
	got := MaskSecrets(flat)

	if got["gist.id"] != "abc123" {
		t.Errorf("non-secret should be unchanged, got %v", got["gist.id"])
	}
	if got["gist.token"] != "***3456" {
		t.Errorf("expected gist.token=***3456, got %v", got["gist.token"])
	}
	if got["telegram.token"] != "***1234" {
		t.Errorf("expected telegram.token=***1234, got %v", got["telegram.token"])
	}
	if got["admin.password"] != "***orte" {
		t.Errorf("expected admin.password=***orte, got %v", got["admin.password"])
	}
	if flat["gist.token"] != "ghp_secret3456" {
		t.Error("MaskSecrets should not modify its input")
	}
}

func TestMaskSecrets_EdgeCases(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"", ""},
		{"ab", "***ab"},
		{"abcd", "***abcd"},
		{"segredoçãoé", "***çãoé"},
	}
	for _, tt := range tests {
		got := MaskSecrets(map[string]any{"admin.password": tt.value})
		if got["admin.password"] != tt.want {
			t.Errorf("%q: expected %q, got %v", tt.value, tt.want, got["admin.password"])
		}
	}
}

func TestIsSecretKey(t *testing.T) {
	for _, k := range []string{"telegram.token", "gist.token", "admin.password"} {
		if !IsSecretKey(k) {
			t.Errorf("%s should be secret", k)
		}
	}
	if IsSecretKey("gist.id") {
		t.Error("gist.id should not be secret")
	}
}

func TestSortedKeys(t *testing.T) {
	got := SortedKeys(map[string]any{"gist.id": 1, "admin.password": 2, "data_dir": 3})
	want := []string{"admin.password", "data_dir", "gist.id"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}
