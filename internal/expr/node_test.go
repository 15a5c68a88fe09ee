package expr

import "testing"

func TestNode_ConcreteValue(t *testing.T) {
	bv := concreteBV(42, 8)
	v, ok := bv.ConcreteValue()
	if !ok || v != 42 {
		t.Errorf("ConcreteValue() = (%d, %v), want (42, true)", v, ok)
	}

	sym := symbolic(8)
	if _, ok := sym.ConcreteValue(); ok {
		t.Error("ConcreteValue() on a symbolic node should report ok=false")
	}
}

func TestNode_ConcreteBool(t *testing.T) {
	b := concreteBool(true)
	v, ok := b.ConcreteBool()
	if !ok || !v {
		t.Errorf("ConcreteBool() = (%v, %v), want (true, true)", v, ok)
	}

	bv := concreteBV(1, 1)
	if _, ok := bv.ConcreteBool(); ok {
		t.Error("ConcreteBool() on a bit-vector node should report ok=false")
	}
}

func TestNode_IsConcrete(t *testing.T) {
	if !concreteBV(1, 8).IsConcrete() {
		t.Error("concrete bit-vector should report IsConcrete()")
	}
	if !concreteBool(false).IsConcrete() {
		t.Error("concrete bool should report IsConcrete()")
	}
	if symbolic(8).IsConcrete() {
		t.Error("symbolic node should not report IsConcrete()")
	}
}

func TestOp_IsTerminal(t *testing.T) {
	for _, op := range []Op{OpConcreteBV, OpConcreteBool, OpSymbolicBV} {
		if !op.IsTerminal() {
			t.Errorf("%s should be terminal", op)
		}
	}
	if OpAdd.IsTerminal() {
		t.Error("OpAdd should not be terminal")
	}
}

func TestOp_ResultIsBoolean(t *testing.T) {
	for _, op := range []Op{OpConcreteBool, OpEq, OpUlt, OpSlt, OpUle, OpSle} {
		if !op.ResultIsBoolean() {
			t.Errorf("%s should always produce a boolean result", op)
		}
	}
	if OpAdd.ResultIsBoolean() {
		t.Error("OpAdd should not always produce a boolean result")
	}
}

func TestRetiredNode_HolderLifecycle(t *testing.T) {
	r := &RetiredNode{ID: 1}
	if r.Holders() != 0 {
		t.Fatalf("fresh retired node has %d holders, want 0", r.Holders())
	}
	r.RetainBy(nil)
	r.RetainBy(nil)
	if r.Holders() != 2 {
		t.Fatalf("after two RetainBy calls, Holders() = %d, want 2", r.Holders())
	}
	r.Release()
	if r.Holders() != 1 {
		t.Fatalf("after one Release, Holders() = %d, want 1", r.Holders())
	}
	r.Release()
	if r.Holders() != 0 {
		t.Fatalf("after matching Release calls, Holders() = %d, want 0", r.Holders())
	}
}
