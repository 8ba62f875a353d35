package worker

import "testing"

func TestInspectNullAndUndefined(t *testing.T) {
	if r := Inspect(nil); r.Type != "Null" || r.String != "null" {
		t.Errorf("Inspect(nil) = %+v", r)
	}
	if r := Inspect(Undefined{}); r.Type != "Undefined" || r.String != "undefined" {
		t.Errorf("Inspect(Undefined{}) = %+v", r)
	}
}

func TestInspectPrimitives(t *testing.T) {
	if r := Inspect(true); r.Type != "Boolean" || len(r.ConstructorList) != 2 {
		t.Errorf("Inspect(true) = %+v", r)
	}
	if r := Inspect(42); r.Type != "Number" {
		t.Errorf("Inspect(42) = %+v", r)
	}
	r := Inspect("hi")
	if r.Type != "String" || r.Length == nil || *r.Length != 2 {
		t.Errorf("Inspect(\"hi\") = %+v", r)
	}
}

func TestInspectArray(t *testing.T) {
	r := Inspect([]int{1, 2, 3})
	if r.Type != "Array" {
		t.Fatalf("Type = %q", r.Type)
	}
	if r.String != "[ 1, 2, 3 ]" {
		t.Errorf("String = %q", r.String)
	}
	if r.Length == nil || *r.Length != 3 {
		t.Errorf("Length = %v", r.Length)
	}
	if len(r.ConstructorList) != 2 || r.ConstructorList[0] != "Array" || r.ConstructorList[1] != "Object" {
		t.Errorf("ConstructorList = %v", r.ConstructorList)
	}
}

type embeddedBase struct {
	Shared string
}

type leafStruct struct {
	embeddedBase
	Own int
}

func TestInspectStructConstructorChain(t *testing.T) {
	r := Inspect(leafStruct{embeddedBase: embeddedBase{Shared: "x"}, Own: 1})
	if r.Type != "leafStruct" {
		t.Fatalf("Type = %q", r.Type)
	}
	want := []string{"leafStruct", "embeddedBase", "Object"}
	if len(r.ConstructorList) != len(want) {
		t.Fatalf("ConstructorList = %v", r.ConstructorList)
	}
	for i, w := range want {
		if r.ConstructorList[i] != w {
			t.Errorf("ConstructorList[%d] = %q, want %q", i, r.ConstructorList[i], w)
		}
	}
}

func TestGetAllPropertyNamesStructChain(t *testing.T) {
	names := GetAllPropertyNames(leafStruct{embeddedBase: embeddedBase{Shared: "x"}, Own: 1})
	found := map[string]bool{}
	for _, n := range names {
		found[n] = true
	}
	if !found["Own"] || !found["Shared"] {
		t.Errorf("names = %v, want Own and Shared present", names)
	}
}

func TestGetAllPropertyNamesMap(t *testing.T) {
	names := GetAllPropertyNames(map[string]int{"b": 2, "a": 1})
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("names = %v, want sorted [a b]", names)
	}
}

func TestGetAllPropertyNamesNilAndUndefined(t *testing.T) {
	if names := GetAllPropertyNames(nil); len(names) != 0 {
		t.Errorf("GetAllPropertyNames(nil) = %v", names)
	}
	if names := GetAllPropertyNames(Undefined{}); len(names) != 0 {
		t.Errorf("GetAllPropertyNames(Undefined{}) = %v", names)
	}
}

func TestCanonicalInspectString(t *testing.T) {
	if got := CanonicalInspect("it's"); got != `'it\'s'` {
		t.Errorf("CanonicalInspect = %q", got)
	}
}
