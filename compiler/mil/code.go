package mil

type (
	// Code is a linear spine of bindings terminated by a tail, a
	// two-way branch, or a constructor dispatch.
	Code interface {
		code()
	}

	Bind struct {
		Vars []Temp
		Tail Tail
		Next Code
	}

	Done struct {
		Tail Tail
	}

	If struct {
		Cond Temp
		Then BlockCall
		Else BlockCall
	}

	CaseAlt struct {
		Cfun *Cfun
		Call BlockCall
	}

	Case struct {
		Cond    Temp
		Alts    []CaseAlt
		Default *BlockCall
	}
)

func (Bind) code() {}
func (Done) code() {}
func (If) code()   {}
func (Case) code() {}

// Walk calls f for every Code node on the spine, outermost first.
func Walk(c Code, f func(Code)) {
	for c != nil {
		f(c)

		b, ok := c.(Bind)
		if !ok {
			return
		}

		c = b.Next
	}
}
