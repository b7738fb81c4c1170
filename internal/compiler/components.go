package compiler

import (
	"fmt"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/roach88/graphscript/internal/env"
	"github.com/roach88/graphscript/internal/ir"
	"github.com/roach88/graphscript/internal/script"
)

// collectComponents registers the component instances of every class in
// the base-first chain. Base elements are transparent: their children are
// walked as if they belonged to the enclosing scope.
func collectComponents(chain []*script.Class) []ir.ComponentInstance {
	var out []ir.ComponentInstance
	var walk func(children []script.Element, parent int, prefix string)
	walk = func(children []script.Element, parent int, prefix string) {
		for _, child := range children {
			switch e := child.(type) {
			case *script.Base:
				walk(e.Children(), parent, prefix)
			case *script.ComponentInstance:
				name := prefix + e.Name()
				out = append(out, ir.ComponentInstance{
					GUID:       e.GUID(),
					Name:       name,
					Public:     e.Public,
					TypeGUID:   e.TypeGUID,
					Transform:  e.Transform,
					Properties: e.Properties.Clone(),
					Parent:     parent,
				})
				walk(e.Children(), len(out)-1, name+".")
			}
		}
	}
	for _, cls := range chain {
		walk(cls.Children(), -1, "")
	}
	return out
}

// FinalizeComponentInstances records each instance's dependencies and
// returns the instances sorted so every dependency precedes its dependents.
//
// Dependencies come from the native descriptor's interactions: a hard
// dependency binds the first other instance of the matching type, a soft
// dependency binds every such instance. The parent instance is an implicit
// dependency. Priorities are then relaxed (a dependency's priority is raised
// above its dependent's) until stable, and instances are stable-sorted by
// descending priority. Parent and dependency indices in the result refer to
// the sorted order.
//
// Relaxation is bounded by the instance count; with a dependency cycle the
// result is not a valid order, and ValidateDependencies reports it.
func FinalizeComponentInstances(instances []ir.ComponentInstance, reg *env.Registry) []ir.ComponentInstance {
	n := len(instances)
	deps := make([][]int, n)
	for i := range instances {
		if p := instances[i].Parent; p >= 0 {
			deps[i] = append(deps[i], p)
		}
		desc := reg.GetComponent(instances[i].TypeGUID)
		if desc == nil {
			continue
		}
		for _, inter := range desc.Interactions {
			for j := range instances {
				if j == i || instances[j].TypeGUID != inter.Component {
					continue
				}
				if !slices.Contains(deps[i], j) {
					deps[i] = append(deps[i], j)
				}
				if inter.Kind == env.HardDependency {
					break
				}
			}
		}
	}

	priority := make([]int, n)
	for pass := 0; pass <= n; pass++ {
		changed := false
		for i := range instances {
			for _, d := range deps[i] {
				if priority[d] <= priority[i] {
					priority[d] = priority[i] + 1
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return priority[b] - priority[a] })

	newIndex := make([]int, n)
	for pos, old := range order {
		newIndex[old] = pos
	}
	out := make([]ir.ComponentInstance, n)
	for pos, old := range order {
		ci := instances[old]
		if ci.Parent >= 0 {
			ci.Parent = newIndex[ci.Parent]
		}
		ci.Dependencies = make([]int, len(deps[old]))
		for k, d := range deps[old] {
			ci.Dependencies[k] = newIndex[d]
		}
		out[pos] = ci
	}
	return out
}

// ValidateDependencies checks dependency-sorted component instances. Every
// hard dependency must resolve to exactly one instance of a singleton type,
// dependencies must be acyclic, and each dependency must come before its
// dependent.
func ValidateDependencies(instances []ir.ComponentInstance, reg *env.Registry) []*DependencyError {
	var errs []*DependencyError

	count := make(map[ir.GUID]int, len(instances))
	for _, ci := range instances {
		count[ci.TypeGUID]++
	}
	for _, ci := range instances {
		desc := reg.GetComponent(ci.TypeGUID)
		if desc == nil {
			continue
		}
		for _, inter := range desc.Interactions {
			if inter.Kind != env.HardDependency {
				continue
			}
			target := reg.GetComponent(inter.Component)
			switch {
			case target == nil || count[inter.Component] == 0:
				errs = append(errs, &DependencyError{
					Code: ErrDependencyUnresolved, Instance: ci.Name, Dependency: inter.Component,
					Message: fmt.Sprintf("hard dependency %s has no instance", componentName(target, inter.Component)),
				})
			case !target.Singleton:
				errs = append(errs, &DependencyError{
					Code: ErrDependencyNotSingleton, Instance: ci.Name, Dependency: inter.Component,
					Message: fmt.Sprintf("hard dependency %s is not a singleton component", target.Name),
				})
			case count[inter.Component] > 1:
				errs = append(errs, &DependencyError{
					Code: ErrDependencyAmbiguous, Instance: ci.Name, Dependency: inter.Component,
					Message: fmt.Sprintf("hard dependency %s has %d instances", target.Name, count[inter.Component]),
				})
			}
		}
	}

	g := simple.NewDirectedGraph()
	for i := range instances {
		g.AddNode(simple.Node(int64(i)))
	}
	for i, ci := range instances {
		for _, d := range ci.Dependencies {
			if d == i {
				continue
			}
			g.SetEdge(g.NewEdge(simple.Node(int64(d)), simple.Node(int64(i))))
		}
	}
	inCycle := make(map[int]bool)
	if _, err := topo.Sort(g); err != nil {
		if cycles, ok := err.(topo.Unorderable); ok {
			for _, scc := range cycles {
				names := make([]string, len(scc))
				ids := make([]int, len(scc))
				for k, node := range scc {
					ids[k] = int(node.ID())
				}
				slices.Sort(ids)
				for k, id := range ids {
					inCycle[id] = true
					names[k] = instances[id].Name
				}
				errs = append(errs, &DependencyError{
					Code: ErrDependencyCycle, Instance: names[0], Dependency: instances[ids[0]].TypeGUID,
					Message: fmt.Sprintf("circular component dependency between %v", names),
				})
			}
		}
	}

	for i, ci := range instances {
		if inCycle[i] {
			continue
		}
		for _, d := range ci.Dependencies {
			if d >= i {
				errs = append(errs, &DependencyError{
					Code: ErrDependencyOrder, Instance: ci.Name, Dependency: instances[d].TypeGUID,
					Message: fmt.Sprintf("dependency %s is constructed after its dependent", instances[d].Name),
				})
			}
		}
	}
	return errs
}

func componentName(desc *env.ComponentDesc, guid ir.GUID) string {
	if desc != nil {
		return desc.Name
	}
	return guid.String()
}
