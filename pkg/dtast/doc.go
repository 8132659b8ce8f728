// Package dtast is the in-memory abstract syntax tree for parsed
// Devicetree source: nodes, properties, values, comments, and
// preprocessor directives, with comments and raw text retained so the
// tree supports lossless round-tripping for diagnostics.
//
// A Tree holds one or more root Nodes (a primary `/ { ... };` plus any
// `&label { ... };` reference-node modifications). Nodes own their
// properties and children in insertion order; redefining a property or
// child updates the existing slot instead of appending a duplicate.
package dtast
