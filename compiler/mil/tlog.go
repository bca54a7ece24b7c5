package mil

import "tlog.app/go/tlog/tlwire"

// TlogAppend renders a Temp compactly in debug dumps, the same way
// ir.Link does in the teacher project.
func (t Temp) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder
	return e.AppendFormat(b, "t%d", int32(t))
}

func (a IntConst) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder
	return e.AppendFormat(b, "%d", a.Value)
}

func (a TopRef) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder
	if a.Top == nil {
		return e.AppendFormat(b, "top#%d", a.Index)
	}

	return e.AppendFormat(b, "%s#%d", a.Top.Name, a.Index)
}

func (p Purity) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder
	return e.AppendString(b, p.String())
}
