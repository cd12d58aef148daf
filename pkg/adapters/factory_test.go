package adapters

import "testing"

func TestNew_HTTP(t *testing.T) {
	a, err := New("http", map[string]string{
		"url":             "http://example.com/series",
		"valuePath":       "data.#.value",
		"timestampPath":   "data.#.year",
		"timestampFormat": "year",
		"headers":         `{"Authorization":"Bearer tok"}`,
		"units":           "C",
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	h, ok := a.(*HTTPAdapter)
	if !ok {
		t.Fatalf("adapter type = %T", a)
	}
	if h.Method != "GET" || h.TimestampFormat != "year" || h.Units != "C" {
		t.Fatalf("defaults not applied: %+v", h)
	}
	if h.Headers["Authorization"] != "Bearer tok" {
		t.Fatalf("headers = %v", h.Headers)
	}
}

func TestNew_Static(t *testing.T) {
	a, err := New("static", map[string]string{
		"document":      `{"v":[1],"t":[1950]}`,
		"valuePath":     "v",
		"timestampPath": "t",
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := a.(*StaticAdapter); !ok {
		t.Fatalf("adapter type = %T", a)
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New("kafka", nil); err == nil {
		t.Fatal("unknown kind accepted")
	}
	if _, err := New("http", map[string]string{"url": "x"}); err == nil {
		t.Fatal("http without paths accepted")
	}
	if _, err := New("http", map[string]string{
		"url": "x", "valuePath": "v", "timestampPath": "t", "headers": "{bad",
	}); err == nil {
		t.Fatal("invalid headers JSON accepted")
	}
	if _, err := New("static", map[string]string{"valuePath": "v", "timestampPath": "t"}); err == nil {
		t.Fatal("static without document accepted")
	}
}
