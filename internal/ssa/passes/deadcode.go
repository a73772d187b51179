package passes

import "github.com/you-not-fish/kestrel/internal/ssa"

// DeadCode removes pure values without uses until none remain.
var DeadCode = Pass{Name: "deadcode", Fn: deadCode}

func deadCode(f *ssa.Func) {
	for changed := true; changed; {
		changed = false
		for _, b := range f.Blocks {
			for i := len(b.Values) - 1; i >= 0; i-- {
				if v := b.Values[i]; v.IsPure() && v.Uses == 0 {
					f.RemoveValue(v)
					changed = true
				}
			}
		}
	}
}
