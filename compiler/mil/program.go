package mil

// Program is the arena that owns every block, top-level, closure,
// cfun and data name in a compilation unit, plus the two shared,
// process-local interning tables (spec §5 "shared resources"). All
// IR-internal cross-references are pointers into this arena rather
// than a tree of owning pointers, which lets Cfun<->DataName and
// TopLevel<->Tail cycles exist without reference cycles in an
// ownership sense.
type Program struct {
	Path string

	TopLevels []*TopLevel
	Blocks    []*Block
	Closures  []*ClosureDefn
	DataNames []*DataName
	Cfuns     []*Cfun

	// Entries lists the top-levels reachable from outside the
	// program (spec §5: "blocks reachable from entry points first").
	Entries []*TopLevel

	Prims *PrimSet
	Types *TypeSet

	temps int32
}

func NewProgram(path string) *Program {
	return &Program{
		Path:  path,
		Prims: NewPrimSet(),
		Types: NewTypeSet(),
	}
}

// FreshTemp mints a Temp with an identity never reused elsewhere in
// this program.
func (p *Program) FreshTemp() Temp {
	t := Temp(p.temps)
	p.temps++

	return t
}

func (p *Program) AddBlock(b *Block) *Block {
	p.Blocks = append(p.Blocks, b)
	return b
}

func (p *Program) AddTopLevel(t *TopLevel) *TopLevel {
	p.TopLevels = append(p.TopLevels, t)
	return t
}

func (p *Program) AddClosure(c *ClosureDefn) *ClosureDefn {
	p.Closures = append(p.Closures, c)
	return c
}

func (p *Program) AddDataName(d *DataName) *DataName {
	p.DataNames = append(p.DataNames, d)
	return d
}

func (p *Program) AddCfun(c *Cfun) *Cfun {
	c.ID = len(p.Cfuns)
	p.Cfuns = append(p.Cfuns, c)

	if c.Data != nil {
		c.Data.Cfuns = append(c.Data.Cfuns, c)
	}

	return c
}
