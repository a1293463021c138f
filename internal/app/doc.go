// Package app wires the interpreter, the energy model and the repositories
// into the application service the HTTP layer talks to.
package app
