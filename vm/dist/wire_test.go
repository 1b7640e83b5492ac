package dist

import (
	"bytes"
	"testing"
)

func TestMarshal_RoundTrip(t *testing.T) {
	tree := map[string]any{
		"name":  "lng",
		"count": int64(3),
		"ratio": 0.5,
		"ok":    true,
		"none":  nil,
		"items": []any{int64(1), "two", []any{}},
	}

	data, err := Marshal(tree)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("got %T, want map[string]any", got)
	}
	if m["name"] != "lng" {
		t.Errorf("name: got %v", m["name"])
	}
	if m["count"] != int64(3) {
		t.Errorf("count: got %v (%T)", m["count"], m["count"])
	}
	if m["ratio"] != 0.5 {
		t.Errorf("ratio: got %v", m["ratio"])
	}
	if m["ok"] != true {
		t.Errorf("ok: got %v", m["ok"])
	}
	if v, present := m["none"]; !present || v != nil {
		t.Errorf("none: got %v, present=%v", v, present)
	}
	items, ok := m["items"].([]any)
	if !ok || len(items) != 3 {
		t.Fatalf("items: got %v", m["items"])
	}
	if items[0] != int64(1) || items[1] != "two" {
		t.Errorf("items: got %v", items)
	}
}

func TestMarshal_NegativeInt(t *testing.T) {
	data, err := Marshal(int64(-42))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != int64(-42) {
		t.Errorf("got %v (%T), want -42", got, got)
	}
}

func TestMarshal_Canonical(t *testing.T) {
	a := map[string]any{"b": int64(1), "a": int64(2), "c": []any{"x"}}
	b := map[string]any{"c": []any{"x"}, "a": int64(2), "b": int64(1)}

	da, err := Marshal(a)
	if err != nil {
		t.Fatalf("Marshal a: %v", err)
	}
	db, err := Marshal(b)
	if err != nil {
		t.Fatalf("Marshal b: %v", err)
	}
	if !bytes.Equal(da, db) {
		t.Error("equal trees should encode to identical bytes")
	}

	ha, _ := Digest(a)
	hb, _ := Digest(b)
	if ha != hb {
		t.Error("equal trees should have equal digests")
	}
}

func TestMarshal_RejectsForeignTypes(t *testing.T) {
	if _, err := Marshal(struct{}{}); err == nil {
		t.Error("expected error for struct value")
	}
	if _, err := Marshal([]any{int64(1), make(chan int)}); err == nil {
		t.Error("expected error for nested channel")
	}
}

func TestSealOpen(t *testing.T) {
	data, err := Seal([]any{"a", int64(1)}, "z", "a")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	tree, env, err := Open(data)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	items, ok := tree.([]any)
	if !ok || len(items) != 2 || items[0] != "a" || items[1] != int64(1) {
		t.Errorf("tree: got %v", tree)
	}
	if len(env.Labels) != 2 || env.Labels[0] != "a" || env.Labels[1] != "z" {
		t.Errorf("labels: got %v", env.Labels)
	}
}

func TestOpen_DetectsTampering(t *testing.T) {
	payload, err := Marshal("original")
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	env := Envelope{Payload: payload}
	data, err := cborEncMode.Marshal(&env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	if _, _, err := Open(data); err == nil {
		t.Error("expected hash mismatch error")
	}
}
