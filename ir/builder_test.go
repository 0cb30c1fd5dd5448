package ir

import "testing"

func TestFunctionBuilder_FinishCollectsLocals(t *testing.T) {
	m := NewModule()
	ty := m.Types.Add([]ValType{I32}, []ValType{I32})
	p := m.Locals.Add(I32)
	a := m.Locals.Add(ExternRef)
	b := m.Locals.Add(I64)

	fb := NewFunctionBuilder(m, ty)
	fb.Body().
		Block(EmptyBlock(), func(inner *SeqBuilder) {
			inner.RefNull(ExternRefType).LocalSet(a)
		}).
		I64Const(0).
		LocalSet(b).
		LocalGet(p).
		LocalTee(p)
	id := fb.Finish([]LocalID{p})

	lf, ok := m.Funcs.Get(id).Local()
	if !ok {
		t.Fatal("finished function should be local")
	}
	if len(lf.Params) != 1 || lf.Params[0] != p {
		t.Errorf("Params = %v, want [%d]", lf.Params, p)
	}
	if len(lf.Locals) != 2 || lf.Locals[0] != a || lf.Locals[1] != b {
		t.Errorf("Locals = %v, want [%d %d]", lf.Locals, a, b)
	}
}

func TestWalk_PreOrder(t *testing.T) {
	m := NewModule()
	ty := m.Types.Add(nil, nil)
	callee := NewFunctionBuilder(m, ty).Finish(nil)

	fb := NewFunctionBuilder(m, ty)
	fb.Body().
		Call(callee).
		IfElse(EmptyBlock(), func(c *SeqBuilder) {
			c.ReturnCall(callee)
		}, func(a *SeqBuilder) {
			a.Loop(EmptyBlock(), func(l *SeqBuilder) { l.Call(callee) })
		}).
		Return()
	lf, _ := m.Funcs.Get(fb.Finish(nil)).Local()

	var order []string
	Walk(lf, func(in Instr) {
		switch in.(type) {
		case *Call:
			order = append(order, "call")
		case *ReturnCall:
			order = append(order, "return_call")
		case *IfElse:
			order = append(order, "if")
		case *Loop:
			order = append(order, "loop")
		case *Return:
			order = append(order, "return")
		}
	})
	want := []string{"call", "if", "return_call", "loop", "call", "return"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestSeqBuilder_TryTableTargetsEnclosingBlock(t *testing.T) {
	m := NewModule()
	exn := m.Types.Add([]ValType{ExternRef}, nil)
	ty := m.Types.Add(nil, nil)
	tag := m.AddTag(exn)

	fb := NewFunctionBuilder(m, ty)
	var blockID SeqID
	fb.Body().Block(SingleBlock(ExternRef), func(blk *SeqBuilder) {
		blockID = blk.ID()
		blk.TryTable(EmptyBlock(), []TryTableCatch{{Kind: CatchTag, Tag: tag, Label: blk.ID()}}, func(body *SeqBuilder) {
			body.RefNull(ExternRefType).Throw(tag)
		}).Unreachable()
	})
	lf, _ := m.Funcs.Get(fb.Finish(nil)).Local()

	var tt *TryTable
	Walk(lf, func(in Instr) {
		if n, ok := in.(*TryTable); ok {
			tt = n
		}
	})
	if tt == nil {
		t.Fatal("try_table not found")
	}
	if tt.Catches[0].Label != blockID {
		t.Errorf("catch label = %d, want %d", tt.Catches[0].Label, blockID)
	}
}
