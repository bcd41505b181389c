package compiler

// builder assembles one CompiledRule's Main, tracking the open
// stream/result-set/state-cell counters and a stack of instruction
// lists so control-flow instructions (Next/Iterate/StoreState) can be
// built with their Body populated by whatever the caller compiles while
// that block is on top of the stack.
type builder struct {
	functions []Endpoint
	fnIndex   map[string]FnID

	nextIter  int
	nextRS    int
	nextState int

	blocks [][]Instruction
}

func newBuilder() *builder {
	return &builder{fnIndex: make(map[string]FnID)}
}

func (b *builder) fnID(kind, channel string, typ EndpointType) FnID {
	key := string(typ) + "\x00" + kind + "\x00" + channel
	if id, ok := b.fnIndex[key]; ok {
		return id
	}
	id := FnID(len(b.functions))
	b.functions = append(b.functions, Endpoint{Kind: kind, Channel: channel, Type: typ})
	b.fnIndex[key] = id
	return id
}

func (b *builder) newIter() IterHandle {
	h := IterHandle(b.nextIter)
	b.nextIter++
	return h
}

func (b *builder) newResultSet() ResultSetHandle {
	h := ResultSetHandle(b.nextRS)
	b.nextRS++
	return h
}

func (b *builder) newState() StateID {
	id := StateID(b.nextState)
	b.nextState++
	return id
}

func (b *builder) emit(i Instruction) {
	top := len(b.blocks) - 1
	b.blocks[top] = append(b.blocks[top], i)
}

func (b *builder) pushBlock() {
	b.blocks = append(b.blocks, nil)
}

func (b *builder) popBlock() []Instruction {
	n := len(b.blocks)
	body := b.blocks[n-1]
	b.blocks = b.blocks[:n-1]
	return body
}
