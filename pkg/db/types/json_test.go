package dbtypes

import (
	"encoding/json"
	"testing"
)

func TestJSONValueAndScan(t *testing.T) {
	src := JSON(`{"bin":"A-1"}`)
	v, err := src.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	if v != `{"bin":"A-1"}` {
		t.Fatalf("unexpected value %v", v)
	}

	var out JSON
	if err := out.Scan([]byte(`{"bin":"A-1"}`)); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if string(out) != `{"bin":"A-1"}` {
		t.Fatalf("unexpected scan %s", out)
	}
}

func TestJSONEmptyValueIsNull(t *testing.T) {
	for _, j := range []JSON{nil, JSON("null"), JSON("  ")} {
		v, err := j.Value()
		if err != nil || v != nil {
			t.Fatalf("expected nil value for %q, got %v (%v)", string(j), v, err)
		}
	}
}

func TestJSONRejectsInvalidDocument(t *testing.T) {
	if _, err := JSON(`{"bin":`).Value(); err == nil {
		t.Fatal("expected invalid json to fail")
	}
	var out JSON
	if err := out.Scan(42); err == nil {
		t.Fatal("expected unsupported scan type to fail")
	}
}

func TestJSONMarshalsRaw(t *testing.T) {
	payload := struct {
		Metadata JSON `json:"metadata"`
	}{Metadata: JSON(`{"a":1}`)}
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(b) != `{"metadata":{"a":1}}` {
		t.Fatalf("unexpected json %s", b)
	}
}
