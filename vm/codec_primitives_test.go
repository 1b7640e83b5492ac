package vm

import (
	"strings"
	"testing"
)

// record builds {name: "lng", tags: ["a", "b"], version: 3, ratio: 0.5}.
func record() *ObjectLit {
	return &ObjectLit{Fields: []Arg{
		named("name", lit("lng")),
		named("tags", list(lit("a"), lit("b"))),
		named("version", num(3)),
		named("ratio", lit(0.5)),
	}}
}

func TestCBORRoundTrip(t *testing.T) {
	vm := NewVM()
	v := run(t, vm,
		local("r", record()),
		local("back", call(id("cbor_decode"), call(id("cbor_encode"), id("r")))),
		list(call(id("equal"), id("r"), id("back")), field(id("back"), "version")),
	)
	got := items(t, v)
	if got[0] != true {
		t.Error("decoded record differs from the original")
	}
	if got[1] != int64(3) {
		t.Errorf("version = %v (%T), want int64 3", got[1], got[1])
	}
}

func TestDigestIgnoresFieldOrder(t *testing.T) {
	vm := NewVM()
	a := &ObjectLit{Fields: []Arg{named("x", num(1)), named("y", num(2))}}
	b := &ObjectLit{Fields: []Arg{named("y", num(2)), named("x", num(1))}}
	c := &ObjectLit{Fields: []Arg{named("x", num(1)), named("y", num(3))}}
	got := items(t, run(t, vm, list(
		call(id("digest"), a),
		call(id("digest"), b),
		call(id("digest"), c),
	)))
	if got[0] != got[1] {
		t.Errorf("digests differ for equal records: %v vs %v", got[0], got[1])
	}
	if got[0] == got[2] {
		t.Error("digest did not change with the content")
	}
	if s, _ := got[0].(string); len(s) != 64 {
		t.Errorf("digest %q is not 32 bytes of hex", s)
	}
}

func TestYAMLCodec(t *testing.T) {
	vm := NewVM()
	text := run(t, vm, call(id("yaml_encode"), record()))
	s, ok := text.(string)
	if !ok {
		t.Fatalf("yaml_encode returned %s", TypeName(text))
	}
	for _, want := range []string{"name: lng", "version: 3", "ratio: 0.5", "- a"} {
		if !strings.Contains(s, want) {
			t.Errorf("yaml output missing %q:\n%s", want, s)
		}
	}

	v := run(t, vm, call(id("yaml_decode"), lit("name: demo\nports: [80, 443]\nnested:\n  on: yes\n")))
	if fieldOf(t, v, "name") != "demo" {
		t.Errorf("name = %v", fieldOf(t, v, "name"))
	}
	if got := Stringify(fieldOf(t, v, "ports")); got != "[80, 443]" {
		t.Errorf("ports = %s", got)
	}
	if _, ok := fieldOf(t, v, "nested").(*LngObject); !ok {
		t.Error("nested mapping did not decode to an object")
	}
}

func TestEncodeSkipsMethodsAndRejectsNonData(t *testing.T) {
	vm := NewVM()
	ctx := vm.NewContext()

	obj := ObjectFrom(ctx, map[string]Value{"n": int64(1), "f": &Builtin{Name: "f"}})
	tree, err := ToTree(obj)
	if err != nil {
		t.Fatalf("ToTree: %v", err)
	}
	m := tree.(map[string]any)
	if _, ok := m["f"]; ok || len(m) != 1 {
		t.Errorf("tree = %v, want only n", m)
	}

	_, err = ToTree(NewChannel(1))
	expectIs(t, err, ErrTypeMismatch)

	l := NewList()
	l.Append(l)
	if _, err := ToTree(l); err == nil {
		t.Error("cyclic list encoded")
	}
}
