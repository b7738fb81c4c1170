// Package loader reads CUE script directories into an env registry and
// script classes ready for the compiler.
//
// A directory holds one CUE package with two top-level sections:
//
//	env: {
//		classes: Entity: default_properties: visible: true
//		components: {
//			Transform: singleton: true
//			Mover: hard: ["Transform"]
//		}
//		actions: Blink: {}
//		types: Meters: {kind: "float", default: 0.0}
//		signals: Hit: params: ["int"]
//	}
//
//	class: Door: {
//		base: "Entity"
//		variables: open: {type: "bool", default: false, public: true}
//		timers: close: {seconds: 2, auto_start: false}
//		receivers: onHit: {
//			signal: "Hit"
//			graph: {
//				nodes: {
//					begin: type: "Begin"
//					on: {type: "Constant", value: true}
//					set: {type: "SetVariable", variable: "open"}
//				}
//				links: ["begin.out -> set.in", "on.value -> set.value"]
//			}
//		}
//		state_machines: Main: {
//			begin: {...}
//			states: Closed: transitions: toOpen: {signal: "Hit", target: "Open"}
//			states: Open: {}
//		}
//	}
//
// Every element may carry an explicit guid. Elements without one get a
// GUID derived with uuid.NewSHA1 from their path in the document, so
// loading the same files twice yields the same classes and layouts.
//
// Names of env descriptors, node types and transition targets are resolved
// here and reported as LoadErrors with CUE positions. Structural problems
// the compiler can diagnose (unknown data types, bad defaults, graph
// wiring) are left to the compiler.
package loader
