package loader

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/graphscript/internal/ir"
	"github.com/roach88/graphscript/internal/nodes"
	"github.com/roach88/graphscript/internal/script"
)

// parseGraph builds a graph from {nodes, links}. A missing graph is nil.
func (l *loader) parseGraph(v cue.Value, path, name string) (*script.Graph, error) {
	if !v.Exists() {
		return nil, nil
	}
	guid, err := elementGUID(v, path)
	if err != nil {
		return nil, err
	}
	g := &script.Graph{GUID: guid, Name: name}
	byName := map[string]ir.GUID{}

	nv := field(v, "nodes")
	if nv.Exists() {
		iter, err := nv.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			n, err := parseNode(path+"/nodes/"+iter.Label(), iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			byName[n.Name] = n.GUID
			g.Nodes = append(g.Nodes, n)
		}
	}

	lv := field(v, "links")
	if !lv.Exists() {
		return g, nil
	}
	iter, err := lv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		link, err := parseLink(s, byName)
		if err != nil {
			return nil, newLoadError(ErrCodeInvalidLink, iter.Value().Pos(), "graph %s: %v", name, err)
		}
		g.Links = append(g.Links, link)
	}
	return g, nil
}

func parseNode(path, name string, v cue.Value) (*script.Node, error) {
	guid, err := elementGUID(v, path)
	if err != nil {
		return nil, err
	}
	typeName, ok, err := optString(v, "type")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newLoadError(ErrCodeInvalidNode, v.Pos(), "node %s: type is required", name)
	}
	impl, err := nodes.New(typeName)
	if err != nil {
		return nil, newLoadError(ErrCodeUnknownNodeType, field(v, "type").Pos(), "node %s: %v", name, err)
	}
	// Configuration fields share the node struct with type and guid, which
	// no node implementation declares.
	if err := decodeJSON(v, impl); err != nil {
		return nil, newLoadError(ErrCodeInvalidNode, v.Pos(), "node %s: %v", name, err)
	}
	return script.NewNode(guid, name, impl), nil
}

// parseLink parses "src.port -> dst.port".
func parseLink(s string, byName map[string]ir.GUID) (script.Link, error) {
	src, dst, ok := strings.Cut(s, "->")
	if !ok {
		return script.Link{}, fmt.Errorf("link %q needs the form a.port -> b.port", s)
	}
	srcNode, srcPort, err := endpoint(strings.TrimSpace(src), byName)
	if err != nil {
		return script.Link{}, err
	}
	dstNode, dstPort, err := endpoint(strings.TrimSpace(dst), byName)
	if err != nil {
		return script.Link{}, err
	}
	return script.Link{SrcNode: srcNode, SrcPort: srcPort, DstNode: dstNode, DstPort: dstPort}, nil
}

func endpoint(s string, byName map[string]ir.GUID) (ir.GUID, string, error) {
	node, port, ok := strings.Cut(s, ".")
	if !ok || node == "" || port == "" {
		return ir.NilGUID, "", fmt.Errorf("endpoint %q needs the form node.port", s)
	}
	guid, found := byName[node]
	if !found {
		return ir.NilGUID, "", fmt.Errorf("unknown node %q", node)
	}
	return guid, port, nil
}
