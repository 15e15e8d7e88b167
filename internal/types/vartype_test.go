package types

import "testing"

func TestElementCountAndClassification(t *testing.T) {
	cases := []struct {
		t     VarType
		count int
		float bool
		int   bool
		bool  bool
	}{
		{Float, 1, true, false, false},
		{Float3, 3, true, false, false},
		{Float8, 8, true, false, false},
		{Int, 1, false, true, false},
		{Int4, 4, false, true, false},
		{Bool, 1, false, false, true},
		{Bool2, 2, false, false, true},
		{Struct, 1, false, false, false},
		{ExternType, 1, false, false, false},
	}
	for _, tc := range cases {
		if got := ElementCount(tc.t); got != tc.count {
			t.Fatalf("ElementCount(%s) = %d, want %d", tc.t, got, tc.count)
		}
		if IsFloat(tc.t) != tc.float || IsInt(tc.t) != tc.int || IsBool(tc.t) != tc.bool {
			t.Fatalf("classification of %s: float=%v int=%v bool=%v", tc.t, IsFloat(tc.t), IsInt(tc.t), IsBool(tc.t))
		}
	}
}

func TestComposeRoundTrip(t *testing.T) {
	for _, base := range []VarType{Float, Int, Bool} {
		for _, n := range []int{1, 2, 3, 4, 8} {
			vt := Compose(base, n)
			if ElementCount(vt) != n || Scalar(vt) != base {
				t.Fatalf("Compose(%s, %d) = %s", base, n, vt)
			}
		}
	}
	if Compose(Float4, 2) != Float2 {
		t.Fatalf("Compose must use the scalar kind of a vector base")
	}
}

func TestComposeRejectsUndefinedWidth(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for 5-wide vector")
		}
	}()
	Compose(Int, 5)
}

func TestParseVarType(t *testing.T) {
	for _, vt := range []VarType{Void, Bool4, Int2, Float3, Float8} {
		got, ok := ParseVarType(vt.String())
		if !ok || got != vt {
			t.Fatalf("ParseVarType(%q) = %s, %v", vt.String(), got, ok)
		}
	}
	if _, ok := ParseVarType("float5"); ok {
		t.Fatal("float5 must not parse")
	}
}

func TestPackedSize(t *testing.T) {
	if PackedSize(Float3) != 12 || PackedSize(Bool) != 4 || PackedSize(Int8) != 32 {
		t.Fatalf("unexpected packed sizes: %d %d %d", PackedSize(Float3), PackedSize(Bool), PackedSize(Int8))
	}
}

func TestConvertSwizzle(t *testing.T) {
	idx, n, ok := ConvertSwizzle("zyx")
	if !ok || n != 3 || idx[0] != 2 || idx[1] != 1 || idx[2] != 0 {
		t.Fatalf("zyx -> %v %d %v", idx, n, ok)
	}
	idx, n, ok = ConvertSwizzle("ga")
	if !ok || n != 2 || idx[0] != 1 || idx[1] != 3 {
		t.Fatalf("ga -> %v %d %v", idx, n, ok)
	}
	for _, bad := range []string{"", "xr", "xyzwx", "q"} {
		if _, _, ok := ConvertSwizzle(bad); ok {
			t.Fatalf("%q must be rejected", bad)
		}
	}
}

func TestIsCompatible(t *testing.T) {
	cases := []struct {
		dest, from VarType
		ok, warn   bool
	}{
		{Float, Int, true, false},
		{Int, Float, true, true},
		{Float4, Float, true, false},
		{Float2, Float4, true, false},
		{Float4, Float2, false, false},
		{Bool, Int, false, false},
		{Void, Void, false, false},
		{Struct, Struct, true, false},
	}
	for _, tc := range cases {
		ok, warn := IsCompatible(tc.dest, tc.from)
		if ok != tc.ok || warn != tc.warn {
			t.Fatalf("IsCompatible(%s, %s) = %v,%v want %v,%v", tc.dest, tc.from, ok, warn, tc.ok, tc.warn)
		}
	}
}

func TestTypeInfoValidate(t *testing.T) {
	def := NewStructDef("P", Member{Name: "x", Type: Float}, Member{Name: "y", Type: Float})
	if err := OfStruct(def).Validate(); err != nil {
		t.Fatalf("struct type info: %v", err)
	}
	if err := (TypeInfo{Type: Struct}).Validate(); err == nil {
		t.Fatal("struct without definition must fail")
	}
	if err := (TypeInfo{Type: Float, Struct: def}).Validate(); err == nil {
		t.Fatal("float carrying a definition must fail")
	}
	if def.MemberIndex("y") != 1 || def.MemberIndex("z") != -1 {
		t.Fatal("MemberIndex mismatch")
	}
	if def.Members[0].TypeString != "float" {
		t.Fatalf("type string = %q", def.Members[0].TypeString)
	}
}
