package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/graphscript/internal/ir"
	"github.com/roach88/graphscript/internal/nodes"
	"github.com/roach88/graphscript/internal/script"
)

// NodePort describes one port of a node type.
type NodePort struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Default string `json:"default,omitempty"`
}

// NodeType describes a node type with its default configuration.
type NodeType struct {
	Type    string     `json:"type"`
	Inputs  []NodePort `json:"inputs"`
	Outputs []NodePort `json:"outputs"`
}

// NewNodesCommand creates the nodes command.
func NewNodesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nodes [type...]",
		Short: "List the node types graphs can use",
		Long: `List the node library with the ports of each type in its default
configuration. Configured nodes such as Sequence or CallFunction add
ports from their configuration.

Examples:
  graphscript nodes
  graphscript nodes Branch SetVariable --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNodes(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runNodes(opts *RootOptions, types []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	if len(types) == 0 {
		types = nodes.Types()
	}

	out := make([]NodeType, 0, len(types))
	for _, t := range types {
		impl, err := nodes.New(t)
		if err != nil {
			return WrapExitError(ExitCommandError, "unknown node type", err)
		}
		in, outs := impl.Ports()
		out = append(out, NodeType{Type: t, Inputs: describePorts(in), Outputs: describePorts(outs)})
	}

	if opts.Format == "json" {
		return formatter.Success(out)
	}
	w := formatter.Writer
	for _, nt := range out {
		fmt.Fprintf(w, "%s\n", nt.Type)
		if len(nt.Inputs) > 0 {
			fmt.Fprintf(w, "  in:  %s\n", joinPorts(nt.Inputs))
		}
		if len(nt.Outputs) > 0 {
			fmt.Fprintf(w, "  out: %s\n", joinPorts(nt.Outputs))
		}
	}
	return nil
}

func describePorts(ports []script.Port) []NodePort {
	out := make([]NodePort, len(ports))
	for i, p := range ports {
		out[i] = NodePort{ID: p.ID, Kind: p.Flags.String()}
		if p.Flags.Has(ir.PortData) && p.Default != nil && p.Default.Kind() != ir.KindNull {
			out[i].Default = ir.Format(p.Default)
		}
	}
	return out
}

func joinPorts(ports []NodePort) string {
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = fmt.Sprintf("%s(%s)", p.ID, p.Kind)
		if p.Default != "" {
			parts[i] += "=" + p.Default
		}
	}
	return strings.Join(parts, " ")
}
