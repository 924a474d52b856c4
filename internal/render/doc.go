// Package render lays out decoded log blocks as terminal rows.
//
// Stack traces fold down to their messages and commands fold down to their
// header, output and exit code. Fold state lives in a Collapse keyed by block
// ID, so it survives the log growing underneath it. Command content can be
// highlighted as shell script with chroma.
package render
