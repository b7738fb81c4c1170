// Package script is the source-level element tree of a script class.
//
// A Class is the root element. Its children are the elements the compiler
// understands: Base, ComponentInstance, Constructor, Function,
// StateMachine, State, Variable, Timer, SignalReceiver, Transition and
// ActionInstance. The set is closed; walkers implement Visitor so adding a
// kind breaks every walker at compile time until it handles the new kind.
//
// Graphs hang off the elements that own them and hold Nodes whose NodeImpl
// binds the runtime callback during graph compilation.
package script
