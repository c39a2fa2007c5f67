package untangle

import "context"

// NodeKind is the kind of a code entity in a semantic graph.
type NodeKind int

// Node kinds.
const (
	NodePackage NodeKind = iota
	NodeClass
	NodeInterface
	NodeEnum
	NodeAnnotation
	NodeField
	NodeMethod
	NodeContainer // File-level scope holding package-level members
)

var nodeKindNames = [...]string{
	NodePackage:    "package",
	NodeClass:      "class",
	NodeInterface:  "interface",
	NodeEnum:       "enum",
	NodeAnnotation: "annotation",
	NodeField:      "field",
	NodeMethod:     "method",
	NodeContainer:  "container",
}

// String returns the lowercase name of the kind.
func (k NodeKind) String() string {
	if int(k) < len(nodeKindNames) {
		return nodeKindNames[k]
	}
	return "unknown"
}

// IsType reports whether the kind is a type declaration.
func (k NodeKind) IsType() bool {
	switch k {
	case NodeClass, NodeInterface, NodeEnum, NodeAnnotation:
		return true
	}
	return false
}

// IsMember reports whether the kind is a field or method.
func (k NodeKind) IsMember() bool {
	return k == NodeField || k == NodeMethod
}

// EdgeKind is the kind of a relation between two code entities.
type EdgeKind int

// Edge kinds.
const (
	EdgeContains EdgeKind = iota
	EdgeImports
	EdgeExtends
	EdgeImplements
	EdgeDefines
	EdgeAccessesField
	EdgeCallsMethod
	EdgeDeclaresObject
	EdgeInitializesObject
)

var edgeKindNames = [...]string{
	EdgeContains:          "contains",
	EdgeImports:           "imports",
	EdgeExtends:           "extends",
	EdgeImplements:        "implements",
	EdgeDefines:           "defines",
	EdgeAccessesField:     "accesses-field",
	EdgeCallsMethod:       "calls-method",
	EdgeDeclaresObject:    "declares-object",
	EdgeInitializesObject: "initializes-object",
}

// String returns the name of the kind.
func (k EdgeKind) String() string {
	if int(k) < len(edgeKindNames) {
		return edgeKindNames[k]
	}
	return "unknown"
}

// IsStructural reports whether the edge expresses a definition (contains,
// defines) rather than a use.
func (k EdgeKind) IsStructural() bool {
	return k == EdgeContains || k == EdgeDefines
}

// LineRange is a closed, 1-based line interval.
type LineRange struct {
	Start int
	End   int
}

// SourceFile is one parsed compilation unit with resolved references.
// Paths are slash-separated and relative to the snapshot root.
type SourceFile struct {
	Path    string
	Package string   // Fully-qualified package name
	Imports []string // Fully-qualified names of imported packages
	Types   []TypeDecl
	Members []MemberDecl
	Err     error // Non-nil when the file failed to parse; the file is skipped
}

// TypeDecl is a type declaration.
type TypeDecl struct {
	Kind          NodeKind
	Name          string
	QualifiedName string
	Path          string
	Lines         LineRange
	Extends       []string // Qualified names of embedded/extended types
	Implements    []string // Qualified names of implemented interfaces
}

// MemberDecl is a field or method declaration. Owner is the qualified name of
// the declaring type, or empty for package-level members.
type MemberDecl struct {
	Kind          NodeKind
	Name          string
	QualifiedName string
	Owner         string
	Path          string
	Lines         LineRange
	Refs          []Ref
}

// Ref is a resolved use of another entity from within a member.
type Ref struct {
	Kind   EdgeKind
	Target string // Qualified name of the referenced entity
}

// SourceParser parses every source file under root into SourceFiles with
// resolved cross-file references.
type SourceParser interface {
	Parse(ctx context.Context, root string) ([]SourceFile, error)
}
