// Package compiler turns script classes into RuntimeClasses.
//
// CompileClass walks a class's inheritance chain down to its env base,
// compiles component instances and dependency-sorts them, compiles every
// other element in a second pass, and then drains a worklist of pending
// graphs. Graph compilation may discover further graphs (a node calling a
// private function), which join the worklist. On success the class is
// finalized, registered, and announced to class-compiled listeners.
//
// Structural problems abort the compile and leave any previously registered
// class in place. Dependency problems are logged at error level; they only
// block registration when the compiler runs with strict dependencies.
package compiler
