package ir

// Walk visits every instruction of fn in pre-order, starting at the entry
// sequence. A structured instruction is visited before the sequences it
// contains, and those are visited in encoding order.
func Walk(fn *LocalFunction, visit func(Instr)) {
	walkSeq(fn, fn.Entry, visit)
}

func walkSeq(fn *LocalFunction, id SeqID, visit func(Instr)) {
	for _, in := range fn.seqs[id].Instrs {
		visit(in)
		for _, child := range Children(in) {
			walkSeq(fn, child, visit)
		}
	}
}
