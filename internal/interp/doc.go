// Package interp implements the EcoLang interpreter: a small, line-oriented
// toy language executed with operation-cost accounting so callers can
// estimate the energy footprint of a program. Runs are bounded by step,
// loop, time and output limits, making the interpreter safe for untrusted
// input.
package interp
