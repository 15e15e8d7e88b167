package diag

import (
	"testing"

	"ksc/internal/source"
)

func TestBagLimitAndErrors(t *testing.T) {
	bag := NewBag(2)
	if !bag.Add(New(SevWarning, CgFloatToInt, source.Span{Start: 4}, "truncates")) {
		t.Fatal("first add rejected")
	}
	if bag.HasErrors() {
		t.Fatal("warning counted as error")
	}
	bag.Add(NewError(CgDuplicateName, source.Span{Start: 1}, "x redeclared"))
	if bag.Add(NewError(CgInternal, source.Span{}, "dropped")) {
		t.Fatal("bag exceeded its limit")
	}
	if !bag.HasErrors() || bag.Len() != 2 {
		t.Fatalf("len=%d errors=%v", bag.Len(), bag.HasErrors())
	}
	bag.Sort()
	if bag.Items()[0].Code != CgDuplicateName {
		t.Fatalf("sort order: %v", bag.Items())
	}
}

func TestBagDedupAndMerge(t *testing.T) {
	a := NewBag(10)
	d := NewError(CgUnresolvedExternal, source.Span{Start: 3, End: 9}, "sin")
	a.Add(d)
	a.Add(d)
	a.Dedup()
	if a.Len() != 1 {
		t.Fatalf("dedup left %d items", a.Len())
	}
	b := NewBag(1)
	b.Merge(a)
	b.Merge(a)
	if b.Len() != 2 || b.Cap() < 2 {
		t.Fatalf("merge len=%d cap=%d", b.Len(), b.Cap())
	}
}

func TestReporters(t *testing.T) {
	bag := NewBag(10)
	r := NewDedupReporter(BagReporter{Bag: bag})
	for range 3 {
		ReportError(r, CgDuplicateName, source.Span{Start: 1, End: 2}, "a").
			WithNote(source.Span{Start: 0, End: 1}, "previous declaration").
			Emit()
	}
	if bag.Len() != 1 || len(bag.Items()[0].Notes) != 1 || r.Suppressed() != 2 {
		t.Fatalf("items = %+v, suppressed %d", bag.Items(), r.Suppressed())
	}
	if SevError.String() != "error" || Severity(9).String() != "unknown" {
		t.Fatalf("severity labels %s/%s", SevError, Severity(9))
	}
	if got := CgDuplicateName.ID(); got != "CG2001" {
		t.Fatalf("id = %s", got)
	}
}
