package compiler

import (
	"fmt"

	"github.com/roach88/graphscript/internal/ir"
	"github.com/roach88/graphscript/internal/script"
)

// nodeBinder records what one node binds while compiling.
type nodeBinder struct {
	cb      ir.NodeCallback
	data    ir.Value
	hasData bool
}

func (b *nodeBinder) BindCallback(cb ir.NodeCallback) { b.cb = cb }
func (b *nodeBinder) BindData(v ir.Value)             { b.data, b.hasData = v, true }

type portRef struct{ node, port int }

// graphCompiler carries the per-graph tables shared by the passes.
type graphCompiler struct {
	src *script.Graph
	dst *ir.RuntimeGraph
	ctx script.CompileContext

	index    map[ir.GUID]int
	inFlags  [][]ir.PortFlags
	outFlags [][]ir.PortFlags
	binders  []nodeBinder

	execUsed map[portRef]bool
	dataUsed map[portRef]bool
	signal   []ir.Link
	flow     []ir.Link
	data     []ir.Link
	pull     []ir.Link
}

// CompileGraph compiles src into dst, which must be empty and mutable.
//
// Compilation runs in passes: port classification, link resolution, node
// compilation, node materialization into dst's scratchpad and link
// emission. dst is finalized on success.
func CompileGraph(src *script.Graph, dst *ir.RuntimeGraph, ctx script.CompileContext) error {
	gc := &graphCompiler{
		src:      src,
		dst:      dst,
		ctx:      ctx,
		index:    make(map[ir.GUID]int, len(src.Nodes)),
		execUsed: make(map[portRef]bool),
		dataUsed: make(map[portRef]bool),
	}
	if err := gc.classify(); err != nil {
		return err
	}
	if err := gc.resolveLinks(); err != nil {
		return err
	}
	if err := gc.compileNodes(); err != nil {
		return err
	}
	gc.materialize()
	gc.emitLinks()
	dst.Finalize()
	ctx.Logger().Debug("graph compiled",
		"graph", src.Name,
		"nodes", len(src.Nodes),
		"links", len(src.Links),
		"slots", dst.Scratchpad().Len())
	return nil
}

func (gc *graphCompiler) fail(code, format string, args ...any) error {
	return &CompileError{Element: gc.src.Name, Code: code, Message: fmt.Sprintf(format, args...)}
}

func (gc *graphCompiler) classify() error {
	gc.inFlags = make([][]ir.PortFlags, len(gc.src.Nodes))
	gc.outFlags = make([][]ir.PortFlags, len(gc.src.Nodes))
	for i, n := range gc.src.Nodes {
		if n.Impl == nil {
			return gc.fail(ErrUnresolvedNode, "node %q has no implementation", n.Name)
		}
		if _, dup := gc.index[n.GUID]; dup {
			return gc.fail(ErrUnresolvedNode, "duplicate node %s", n.GUID)
		}
		gc.index[n.GUID] = i
		gc.inFlags[i] = make([]ir.PortFlags, len(n.Inputs))
		for p, port := range n.Inputs {
			gc.inFlags[i][p] = port.Flags
		}
		gc.outFlags[i] = make([]ir.PortFlags, len(n.Outputs))
		for p, port := range n.Outputs {
			gc.outFlags[i][p] = port.Flags | ir.PortUnused
		}
	}
	return nil
}

func (gc *graphCompiler) resolveLinks() error {
	for _, sl := range gc.src.Links {
		srcIdx, ok := gc.index[sl.SrcNode]
		if !ok {
			return gc.fail(ErrUnresolvedNode, "link source node %s not found", sl.SrcNode)
		}
		dstIdx, ok := gc.index[sl.DstNode]
		if !ok {
			return gc.fail(ErrUnresolvedNode, "link destination node %s not found", sl.DstNode)
		}
		srcNode, dstNode := gc.src.Nodes[srcIdx], gc.src.Nodes[dstIdx]
		out := script.PortIndex(srcNode.Outputs, sl.SrcPort)
		if out < 0 {
			return gc.fail(ErrUnresolvedPort, "node %q has no output %q", srcNode.Name, sl.SrcPort)
		}
		in := script.PortIndex(dstNode.Inputs, sl.DstPort)
		if in < 0 {
			return gc.fail(ErrUnresolvedPort, "node %q has no input %q", dstNode.Name, sl.DstPort)
		}

		link := ir.Link{SrcNode: srcIdx, SrcPort: out, DstNode: dstIdx, DstPort: in}
		of, inf := gc.outFlags[srcIdx][out], gc.inFlags[dstIdx][in]
		switch {
		case (of.Has(ir.PortSignal) || of.Has(ir.PortFlow)) && inf.Has(ir.PortFlow):
			key := portRef{srcIdx, out}
			if gc.execUsed[key] {
				return gc.fail(ErrDuplicateExecLink, "output %s.%s drives more than one link", srcNode.Name, sl.SrcPort)
			}
			gc.execUsed[key] = true
			if of.Has(ir.PortSignal) {
				gc.signal = append(gc.signal, link)
			} else {
				gc.flow = append(gc.flow, link)
			}
		case of.Has(ir.PortData) && (inf.Has(ir.PortData) || inf.Has(ir.PortReference)):
			key := portRef{dstIdx, in}
			if gc.dataUsed[key] {
				return gc.fail(ErrDuplicateExecLink, "input %s.%s is fed by more than one link", dstNode.Name, sl.DstPort)
			}
			gc.dataUsed[key] = true
			// A linked input reads its producer's slot instead of a default
			gc.inFlags[dstIdx][in] = inf&^ir.PortData | ir.PortReference
			if of.Has(ir.PortPull) {
				gc.inFlags[dstIdx][in] |= ir.PortPull
				gc.pull = append(gc.pull, link)
			} else {
				gc.data = append(gc.data, link)
			}
		default:
			return gc.fail(ErrPortMismatch, "cannot link %s.%s (%s) to %s.%s (%s)",
				srcNode.Name, sl.SrcPort, of&^ir.PortUnused, dstNode.Name, sl.DstPort, inf)
		}
		gc.outFlags[srcIdx][out] &^= ir.PortUnused
	}
	return nil
}

func (gc *graphCompiler) compileNodes() error {
	gc.binders = make([]nodeBinder, len(gc.src.Nodes))
	for i, n := range gc.src.Nodes {
		b := &gc.binders[i]
		if err := n.Impl.Compile(gc.ctx, b); err != nil {
			return &CompileError{Element: gc.src.Name, Code: ErrNodeCompile,
				Message: fmt.Sprintf("node %q: %v", n.Name, err)}
		}
		if b.cb == nil {
			return gc.fail(ErrUnboundCallback, "node %q bound no callback", n.Name)
		}
		for p, port := range n.Inputs {
			f := gc.inFlags[i][p]
			if f.Has(ir.PortData) && port.Default == nil {
				return gc.fail(ErrUnlinkedInput, "input %s.%s needs a link", n.Name, port.ID)
			}
		}
	}
	return nil
}

// materialize lays out node constants, unlinked input defaults and live
// data outputs in the graph scratchpad, in node order.
func (gc *graphCompiler) materialize() {
	scratch := gc.dst.Scratchpad()
	entry := -1
	for i, n := range gc.src.Nodes {
		b := gc.binders[i]
		rn := ir.RuntimeNode{
			GUID:          n.GUID,
			Name:          n.Name,
			Callback:      b.cb,
			InputIDs:      portIDs(n.Inputs),
			OutputIDs:     portIDs(n.Outputs),
			DataOffset:    -1,
			InputOffsets:  make([]int, len(n.Inputs)),
			OutputOffsets: make([]int, len(n.Outputs)),
			InputFlags:    gc.inFlags[i],
			OutputFlags:   gc.outFlags[i],
		}
		if b.hasData {
			rn.DataOffset = scratch.Add(b.data)
		}
		for p, port := range n.Inputs {
			rn.InputOffsets[p] = -1
			f := gc.inFlags[i][p]
			if f.Has(ir.PortData) {
				rn.InputOffsets[p] = scratch.Add(port.Default)
			}
		}
		for p := range n.Outputs {
			rn.OutputOffsets[p] = -1
			f := gc.outFlags[i][p]
			if f.Has(ir.PortData) && !f.Has(ir.PortUnused) {
				rn.OutputOffsets[p] = scratch.Add(ir.Null{})
			}
			if entry < 0 && f.Has(ir.PortSignal) {
				entry = i
			}
		}
		gc.dst.AddNode(rn)
	}
	gc.dst.SetEntry(entry)
}

func (gc *graphCompiler) emitLinks() {
	for _, l := range gc.signal {
		gc.dst.AddSignalLink(l)
	}
	for _, l := range gc.flow {
		gc.dst.AddFlowLink(l)
	}
	for _, l := range gc.data {
		gc.dst.AddDataLink(l)
	}
	for _, l := range gc.pull {
		gc.dst.AddPullLink(l)
	}
}

func portIDs(ports []script.Port) []string {
	ids := make([]string, len(ports))
	for i, p := range ports {
		ids[i] = p.ID
	}
	return ids
}
