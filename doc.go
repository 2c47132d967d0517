// Package quiver provides a rewriting engine for quantum circuits represented
// as directed acyclic graphs of gate operations.
//
// Given a target circuit and a library of rewrite rules, quiver finds every
// location where a rule's pattern can be legally substituted while preserving
// circuit semantics. It is the matching core of a superoptimization search:
// the search driver decides which match to apply, quiver decides where rules
// apply at all.
//
// The main packages are:
//   - gate: the closed catalog of legal gate kinds and their arities
//   - circuit: ordered gate sequences (patterns, replacements, parsed input)
//   - graph: the DAG form of a circuit, rule matching and rewriting
//   - equivalence: persisted equivalence classes and bulk rule generation
package quiver

import "github.com/blang/semver/v4"

// Version of the quiver library
var Version = semver.MustParse("0.1.0")
