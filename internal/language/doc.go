// Package language holds the fixed audio language catalog and the candidate
// matching used to pick audio tracks.
//
// The catalog is the process-wide constant that populates selection UIs and
// provides display labels for directives. Candidate building normalizes a
// code/label pair into the lowercase variants (full tag, primary subtag,
// label, label without parenthetical qualifiers) that track matching and the
// menu fallback search on.
package language
