// Package objmeta owns the per-frame object graph.
//
// Responsibilities: object nodes, their attribute maps, and the
// parent/child relation between nodes of the same frame.
// Key types: Frame, Graph, ObjectNode, Attribute.
//
// Parent links are NodeID keys resolved through the owning Graph, never
// pointers, so removing a node cannot leave a child holding a live
// reference to it.
//
// Dependency rule: objmeta depends only on qname.
// No SQL/database code is allowed in this package.
package objmeta
