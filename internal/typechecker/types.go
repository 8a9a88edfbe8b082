package typechecker

import (
	"strings"

	"github.com/infra-lang/infra/internal/ast"
)

type Kind int

const (
	KindAny Kind = iota
	KindNumber
	KindString
	KindBoolean
	KindNull
	KindArray
	KindObject
	KindFunction
	KindUnion
	KindNamed
)

// Type is the checker's internal type algebra. Annotations and inferred
// expression types both normalize to it.
type Type struct {
	Kind    Kind
	Elem    *Type            // KindArray
	Fields  map[string]*Type // KindObject
	Order   []string         // KindObject, annotation key order
	Params  []*Type          // KindFunction
	Return  *Type            // KindFunction
	Members []*Type          // KindUnion
	Name    string           // KindNamed
}

var (
	anyType     = &Type{Kind: KindAny}
	numberType  = &Type{Kind: KindNumber}
	stringType  = &Type{Kind: KindString}
	booleanType = &Type{Kind: KindBoolean}
	nullType    = &Type{Kind: KindNull}
)

func (t *Type) String() string {
	switch t.Kind {
	case KindAny:
		return "any"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	case KindNull:
		return "null"
	case KindArray:
		return "[" + t.Elem.String() + "]"
	case KindObject:
		fields := make([]string, len(t.Order))
		for i, k := range t.Order {
			fields[i] = k + ": " + t.Fields[k].String()
		}
		return "{" + strings.Join(fields, ", ") + "}"
	case KindFunction:
		params := make([]string, len(t.Params))
		for i, p := range t.Params {
			params[i] = p.String()
		}
		return "(" + strings.Join(params, ", ") + ") -> " + t.Return.String()
	case KindUnion:
		members := make([]string, len(t.Members))
		for i, m := range t.Members {
			members[i] = m.String()
		}
		return strings.Join(members, " | ")
	case KindNamed:
		return t.Name
	}
	return "any"
}

// typeFromExpr normalizes an annotation into the checker's algebra.
// Unrecognized names become KindNamed and behave like any, so unknown
// aliases never produce findings.
func typeFromExpr(expr ast.TypeExpr) *Type {
	switch expr := expr.(type) {
	case *ast.NamedType:
		switch expr.Name {
		case "number":
			return numberType
		case "string":
			return stringType
		case "boolean":
			return booleanType
		case "null":
			return nullType
		case "any":
			return anyType
		default:
			return &Type{Kind: KindNamed, Name: expr.Name}
		}
	case *ast.ArrayType:
		return &Type{Kind: KindArray, Elem: typeFromExpr(expr.Element)}
	case *ast.ObjectType:
		t := &Type{Kind: KindObject, Fields: make(map[string]*Type)}
		for _, f := range expr.Fields {
			if _, seen := t.Fields[f.Key]; !seen {
				t.Order = append(t.Order, f.Key)
			}
			t.Fields[f.Key] = typeFromExpr(f.Type)
		}
		return t
	case *ast.FunctionType:
		t := &Type{Kind: KindFunction, Return: typeFromExpr(expr.Return)}
		for _, p := range expr.Params {
			t.Params = append(t.Params, typeFromExpr(p))
		}
		return t
	case *ast.UnionType:
		t := &Type{Kind: KindUnion}
		for _, m := range expr.Members {
			t.Members = append(t.Members, typeFromExpr(m))
		}
		return t
	}
	return anyType
}

// conforms reports whether a value of type got satisfies the annotation
// want. Unknown types on either side conform: the checker only flags
// what it can prove wrong.
func conforms(got, want *Type) bool {
	if got == nil || want == nil {
		return true
	}
	if got.Kind == KindAny || want.Kind == KindAny {
		return true
	}
	if got.Kind == KindNamed || want.Kind == KindNamed {
		// User-defined names (classes, aliases) are opaque here.
		return true
	}
	if want.Kind == KindUnion {
		for _, m := range want.Members {
			if conforms(got, m) {
				return true
			}
		}
		return false
	}
	if got.Kind == KindUnion {
		for _, m := range got.Members {
			if !conforms(m, want) {
				return false
			}
		}
		return true
	}
	if got.Kind != want.Kind {
		return false
	}
	switch want.Kind {
	case KindArray:
		return conforms(got.Elem, want.Elem)
	case KindObject:
		for key, wantField := range want.Fields {
			gotField, present := got.Fields[key]
			if !present {
				return false
			}
			if !conforms(gotField, wantField) {
				return false
			}
		}
		return true
	case KindFunction:
		if len(got.Params) != len(want.Params) {
			return false
		}
		for i := range want.Params {
			if !conforms(got.Params[i], want.Params[i]) {
				return false
			}
		}
		return conforms(got.Return, want.Return)
	}
	return true
}
