// Package nodes is the standard node library.
//
// Each node type is a script.NodeImpl with exported configuration fields
// (decoded by the loader through their json tags). Pure nodes such as
// Constant, Add or GetVariable expose pull outputs and run when a consumer
// reads them; the others sit on the execution chain.
//
// A graph's entry is its first node with a signal output, which in this
// library is always a Begin node.
package nodes
