package emit

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStructFieldsSplitsTopLevel(t *testing.T) {
	ty := Struct(I32, Struct(I8, Opaque), Array(2, Struct(I64, I64)), FuncPtr(Signature{Ret: Void, Params: []Type{Opaque, I32}}))
	want := []Type{"i32", "{ i8, i8* }", "[2 x { i64, i64 }]", "void (i8*, i32)*"}
	if diff := cmp.Diff(want, ty.Fields()); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	if Struct().Fields() != nil {
		t.Fatalf("empty struct has no fields")
	}
}

func TestPointerHelpers(t *testing.T) {
	p := I32.Ptr().Ptr()
	if !p.IsPtr() || p.Elem() != "i32*" || p.Elem().Elem() != I32 {
		t.Fatalf("unexpected pointer spelling %q", p)
	}
	if elem, ok := Array(4, I8).ArrayElem(); !ok || elem != I8 {
		t.Fatalf("ArrayElem = %q, %v", elem, ok)
	}
	if Zero(Opaque).Ref != "null" || Zero(Struct(I32)).Ref != "zeroinitializer" {
		t.Fatalf("unexpected zero values")
	}
}
