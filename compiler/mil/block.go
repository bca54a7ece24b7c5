package mil

type (
	// Block is a named code with explicit parameters, the unit of
	// control flow. Blocks are referred to by pointer; a program is a
	// set of blocks plus entry points.
	Block struct {
		Name string

		Params     []Temp
		ParamTypes []Type

		Body Code

		ResultTypes []Type

		// call-site metadata: UnusedArgs is rewritten by compiler/pass's
		// remove-unused-args stage on every run; no pass fills in Preds.
		Preds       []*Block
		UnusedArgs  []int
	}

	// TopLhs is one component of a top-level's declared or inferred
	// scheme.
	TopLhs struct {
		Name string
		Type Type
	}

	// TopLevel is a named, parameterless tuple-valued definition
	// evaluated once.
	TopLevel struct {
		Name string
		Lhs  []TopLhs
		Tail Tail
	}

	// ClosureDefn is a closure with captured atoms.
	ClosureDefn struct {
		Name string

		Stored     []Temp
		StoredType []Type

		Params     []Temp
		ParamTypes []Type

		Body Tail

		ResultTypes []Type
	}

	// DataName names a user algebraic type and its constructors.
	DataName struct {
		Name  string
		Cfuns []*Cfun
		Rep   *RepType
	}

	// Cfun is a constructor function: it introduces a tagged variant
	// of a data type.
	Cfun struct {
		ID       int
		Data     *DataName
		TagIndex int
		ArgTypes []Type
		Alloc    Type
	}
)

func (b *Block) Outity() int { return len(b.ResultTypes) }

func (b *Block) BlockType() BlockType {
	return BlockType{Params: b.ParamTypes, Result: b.ResultTypes}
}

func (f *ClosureDefn) BlockType() BlockType {
	return BlockType{Params: f.ParamTypes, Result: f.ResultTypes}
}
