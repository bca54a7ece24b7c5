package lift

import "github.com/EmiliaPaz/mil-tools/compiler/mil"

// tarjanState runs Tarjan's SCC algorithm over the LocalFunc call
// graph, indices 0..len(funcs)-1. order accumulates finished indices
// in emission order, which Tarjan guarantees is reverse-topological:
// an index's callees are always fully emitted (including their own
// SCC) before the index itself, except for calls back within its own
// SCC.
type tarjanState struct {
	funcs    []LocalFunc
	blockIdx map[*mil.Block]int

	index, low []int
	onStack    []bool
	stack      []int
	counter    int
	order      []int
}

// tarjanOrder returns func indices ordered so that, ignoring calls
// within the same SCC, every callee appears before its callers.
func tarjanOrder(funcs []LocalFunc, blockIdx map[*mil.Block]int) []int {
	n := len(funcs)

	st := &tarjanState{
		funcs:    funcs,
		blockIdx: blockIdx,
		index:    make([]int, n),
		low:      make([]int, n),
		onStack:  make([]bool, n),
	}

	for i := range st.index {
		st.index[i] = -1
	}

	for i := 0; i < n; i++ {
		if st.index[i] == -1 {
			st.strongConnect(i)
		}
	}

	return st.order
}

func (st *tarjanState) strongConnect(v int) {
	st.index[v] = st.counter
	st.low[v] = st.counter
	st.counter++

	st.stack = append(st.stack, v)
	st.onStack[v] = true

	for _, callee := range st.funcs[v].Calls {
		w, ok := st.blockIdx[callee]
		if !ok {
			continue
		}

		switch {
		case st.index[w] == -1:
			st.strongConnect(w)
			if st.low[w] < st.low[v] {
				st.low[v] = st.low[w]
			}
		case st.onStack[w]:
			if st.index[w] < st.low[v] {
				st.low[v] = st.index[w]
			}
		}
	}

	if st.low[v] != st.index[v] {
		return
	}

	for {
		w := st.stack[len(st.stack)-1]
		st.stack = st.stack[:len(st.stack)-1]
		st.onStack[w] = false
		st.order = append(st.order, w)

		if w == v {
			return
		}
	}
}
