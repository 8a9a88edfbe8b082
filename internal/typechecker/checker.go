package typechecker

import (
	"github.com/infra-lang/infra/internal/ast"
	"github.com/infra-lang/infra/internal/diagnostics"
)

// Checker validates annotations against structurally inferred expression
// types. It is advisory: findings are warnings unless strict mode
// promotes them, and unannotated or uninferrable code is never flagged.
type Checker struct {
	Strict   bool
	findings []*diagnostics.Error

	// scope maps names to inferred or annotated types. A nil parent
	// marks the global scope.
	scope *scope
}

type scope struct {
	parent *scope
	names  map[string]*Type
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, names: make(map[string]*Type)}
}

func (s *scope) lookup(name string) *Type {
	for sc := s; sc != nil; sc = sc.parent {
		if t, ok := sc.names[name]; ok {
			return t
		}
	}
	return nil
}

func (s *scope) define(name string, t *Type) {
	s.names[name] = t
}

func New(strict bool) *Checker {
	return &Checker{Strict: strict, scope: newScope(nil)}
}

// Check walks the program and returns its findings. The AST is not
// modified.
func (c *Checker) Check(program *ast.Program) []*diagnostics.Error {
	for _, stmt := range program.Statements {
		c.checkStatement(stmt, nil)
	}
	return c.findings
}

func (c *Checker) report(node ast.Node, format string, args ...interface{}) {
	finding := diagnostics.NewWarning(diagnostics.ErrT001, node.GetToken(), format, args...)
	if c.Strict {
		finding.Severity = diagnostics.SeverityError
	}
	c.findings = append(c.findings, finding)
}

// checkStatement walks one statement. wantReturn carries the enclosing
// function's annotated return type, nil outside functions or when
// unannotated.
func (c *Checker) checkStatement(stmt ast.Statement, wantReturn *Type) {
	switch stmt := stmt.(type) {
	case *ast.LetStatement:
		c.checkLet(stmt)
	case *ast.PrintStatement:
		c.inferExpr(stmt.Value)
	case *ast.ExpressionStatement:
		c.inferExpr(stmt.Expression)
	case *ast.BlockStatement:
		c.checkBlock(stmt, wantReturn)
	case *ast.IfStatement:
		c.inferExpr(stmt.Condition)
		c.checkBlock(stmt.Consequence, wantReturn)
		if stmt.Alternative != nil {
			c.checkBlock(stmt.Alternative, wantReturn)
		}
	case *ast.WhileStatement:
		c.inferExpr(stmt.Condition)
		c.checkBlock(stmt.Body, wantReturn)
	case *ast.ForRangeStatement:
		c.checkRangeBound(stmt.From)
		c.checkRangeBound(stmt.To)
		c.scope = newScope(c.scope)
		c.scope.define(stmt.Variable.Value, numberType)
		c.checkBlock(stmt.Body, wantReturn)
		c.scope = c.scope.parent
	case *ast.FunctionStatement:
		c.scope.define(stmt.Name.Value, functionType(stmt.Params, stmt.ReturnType))
		c.checkFunctionBody(stmt.Params, stmt.ReturnType, stmt.Body)
	case *ast.ReturnStatement:
		c.checkReturn(stmt, wantReturn)
	case *ast.TryStatement:
		c.checkBlock(stmt.Body, wantReturn)
		if stmt.Catch != nil {
			c.scope = newScope(c.scope)
			c.scope.define(stmt.CatchVar.Value, stringType)
			c.checkBlock(stmt.Catch, wantReturn)
			c.scope = c.scope.parent
		}
		if stmt.Finally != nil {
			c.checkBlock(stmt.Finally, wantReturn)
		}
	case *ast.ThrowStatement:
		c.inferExpr(stmt.Value)
	case *ast.ClassStatement:
		c.scope.define(stmt.Name.Value, &Type{Kind: KindNamed, Name: stmt.Name.Value})
		for _, method := range stmt.Methods {
			c.checkFunctionBody(method.Params, method.ReturnType, method.Body)
		}
	case *ast.ExportStatement:
		c.checkStatement(stmt.Declaration, wantReturn)
	}
}

func (c *Checker) checkBlock(block *ast.BlockStatement, wantReturn *Type) {
	c.scope = newScope(c.scope)
	for _, stmt := range block.Statements {
		c.checkStatement(stmt, wantReturn)
	}
	c.scope = c.scope.parent
}

func (c *Checker) checkLet(stmt *ast.LetStatement) {
	if stmt.Type == nil {
		c.scope.define(stmt.Name.Value, c.inferExpr(stmt.Value))
		return
	}
	want := typeFromExpr(stmt.Type)
	c.checkExprAgainst(stmt.Value, want, "variable '"+stmt.Name.Value+"'")
	c.scope.define(stmt.Name.Value, want)
}

func (c *Checker) checkRangeBound(expr ast.Expression) {
	got := c.inferExpr(expr)
	if !conforms(got, numberType) {
		c.report(expr, "range() bound has type %s, expected number", got)
	}
}

func functionType(params []*ast.Param, returnType ast.TypeExpr) *Type {
	t := &Type{Kind: KindFunction, Return: anyType}
	for _, p := range params {
		if p.Type != nil {
			t.Params = append(t.Params, typeFromExpr(p.Type))
		} else {
			t.Params = append(t.Params, anyType)
		}
	}
	if returnType != nil {
		t.Return = typeFromExpr(returnType)
	}
	return t
}

func (c *Checker) checkFunctionBody(params []*ast.Param, returnType ast.TypeExpr, body *ast.BlockStatement) {
	c.scope = newScope(c.scope)
	for _, p := range params {
		if p.Type != nil {
			c.scope.define(p.Name.Value, typeFromExpr(p.Type))
		} else {
			c.scope.define(p.Name.Value, anyType)
		}
	}
	var wantReturn *Type
	if returnType != nil {
		wantReturn = typeFromExpr(returnType)
	}
	for _, stmt := range body.Statements {
		c.checkStatement(stmt, wantReturn)
	}
	c.scope = c.scope.parent
}

func (c *Checker) checkReturn(stmt *ast.ReturnStatement, wantReturn *Type) {
	if stmt.Value == nil {
		if wantReturn != nil && !conforms(nullType, wantReturn) {
			c.report(stmt, "Return value has type null, expected %s", wantReturn)
		}
		return
	}
	got := c.inferExpr(stmt.Value)
	if wantReturn != nil && !conforms(got, wantReturn) {
		c.report(stmt.Value, "Return value has type %s, expected %s", got, wantReturn)
	}
}

// checkExprAgainst validates an expression against an annotation,
// descending into array and object literals so findings can name the
// exact failing index or property key.
func (c *Checker) checkExprAgainst(expr ast.Expression, want *Type, subject string) {
	if want.Kind == KindAny {
		c.inferExpr(expr)
		return
	}

	if arr, ok := expr.(*ast.ArrayLiteral); ok && want.Kind == KindArray {
		for i, elem := range arr.Elements {
			got := c.inferExpr(elem)
			if !conforms(got, want.Elem) {
				c.report(elem, "Array element at index %d has type %s, expected %s", i, got, want.Elem)
			}
		}
		return
	}

	if obj, ok := expr.(*ast.ObjectLiteral); ok && want.Kind == KindObject {
		present := make(map[string]bool, len(obj.Fields))
		for _, field := range obj.Fields {
			present[field.Key] = true
			wantField, annotated := want.Fields[field.Key]
			got := c.inferExpr(field.Value)
			if annotated && !conforms(got, wantField) {
				c.report(field.Value, "Object property '%s' has type %s, expected %s", field.Key, got, wantField)
			}
		}
		for _, key := range want.Order {
			if !present[key] {
				c.report(obj, "Object property '%s' is missing, expected %s", key, want.Fields[key])
			}
		}
		return
	}

	got := c.inferExpr(expr)
	if !conforms(got, want) {
		c.report(expr, "Type mismatch: %s is annotated as %s but initialized with %s", subject, want, got)
	}
}

// inferExpr walks an expression and returns its best-effort type.
// Anything the checker cannot prove stays any; any never produces a
// finding. Side effect: nested annotations (call arguments against known
// signatures) are validated along the way.
func (c *Checker) inferExpr(expr ast.Expression) *Type {
	switch expr := expr.(type) {
	case *ast.NumberLiteral:
		return numberType
	case *ast.StringLiteral:
		return stringType
	case *ast.BooleanLiteral:
		return booleanType
	case *ast.NullLiteral:
		return nullType
	case *ast.FStringLiteral:
		for _, part := range expr.Parts {
			if part.Expr != nil {
				c.inferExpr(part.Expr)
			}
		}
		return stringType
	case *ast.Identifier:
		if t := c.scope.lookup(expr.Value); t != nil {
			return t
		}
		return anyType
	case *ast.PrefixExpression:
		return c.inferPrefix(expr)
	case *ast.InfixExpression:
		return c.inferInfix(expr)
	case *ast.AssignExpression:
		return c.inferAssign(expr)
	case *ast.CallExpression:
		return c.inferCall(expr)
	case *ast.IndexExpression:
		c.inferExpr(expr.Index)
		base := c.inferExpr(expr.Left)
		if base.Kind == KindArray {
			return base.Elem
		}
		return anyType
	case *ast.MemberExpression:
		base := c.inferExpr(expr.Object)
		if base.Kind == KindObject {
			if t, ok := base.Fields[expr.Property.Value]; ok {
				return t
			}
		}
		return anyType
	case *ast.ArrayLiteral:
		return c.inferArray(expr)
	case *ast.ObjectLiteral:
		return c.inferObject(expr)
	case *ast.FunctionLiteral:
		c.checkFunctionBody(expr.Params, expr.ReturnType, expr.Body)
		return functionType(expr.Params, expr.ReturnType)
	case *ast.AwaitExpression:
		c.inferExpr(expr.Value)
		return anyType
	case *ast.NewExpression:
		for _, arg := range expr.Arguments {
			c.inferExpr(arg)
		}
		if name, ok := expr.Class.(*ast.Identifier); ok {
			return &Type{Kind: KindNamed, Name: name.Value}
		}
		return anyType
	}
	return anyType
}

func (c *Checker) inferPrefix(expr *ast.PrefixExpression) *Type {
	got := c.inferExpr(expr.Right)
	switch expr.Operator {
	case "!":
		return booleanType
	case "-":
		if !conforms(got, numberType) {
			c.report(expr.Right, "Operand of '-' has type %s, expected number", got)
		}
		return numberType
	}
	return anyType
}

func (c *Checker) inferInfix(expr *ast.InfixExpression) *Type {
	left := c.inferExpr(expr.Left)
	right := c.inferExpr(expr.Right)

	switch expr.Operator {
	case "+":
		// String on either side concatenates; two numbers add. Other
		// proven combinations fail at runtime.
		if left.Kind == KindString || right.Kind == KindString {
			return stringType
		}
		if left.Kind == KindNumber && right.Kind == KindNumber {
			return numberType
		}
		if left.Kind == KindAny || right.Kind == KindAny ||
			left.Kind == KindUnion || right.Kind == KindUnion ||
			left.Kind == KindNamed || right.Kind == KindNamed {
			return anyType
		}
		c.report(expr, "Operands of '+' have types %s and %s", left, right)
		return anyType
	case "-", "*", "/", "%":
		if !conforms(left, numberType) {
			c.report(expr.Left, "Operand of '%s' has type %s, expected number", expr.Operator, left)
		}
		if !conforms(right, numberType) {
			c.report(expr.Right, "Operand of '%s' has type %s, expected number", expr.Operator, right)
		}
		return numberType
	case "<", "<=", ">", ">=":
		if left.Kind != KindAny && right.Kind != KindAny &&
			left.Kind != right.Kind &&
			(left.Kind == KindNumber || left.Kind == KindString) &&
			(right.Kind == KindNumber || right.Kind == KindString) {
			c.report(expr, "Cannot compare %s with %s using '%s'", left, right, expr.Operator)
		}
		return booleanType
	case "==", "!=", "&&", "||":
		return booleanType
	}
	return anyType
}

func (c *Checker) inferAssign(expr *ast.AssignExpression) *Type {
	got := c.inferExpr(expr.Value)
	if target, ok := expr.Target.(*ast.Identifier); ok {
		want := c.scope.lookup(target.Value)
		if want != nil && !conforms(got, want) {
			c.report(expr.Value, "Type mismatch: variable '%s' is annotated as %s but assigned %s", target.Value, want, got)
			return want
		}
	} else {
		c.inferExpr(expr.Target)
	}
	return got
}

// inferCall validates annotated parameters against inferrable arguments
// when the callee resolves to a known function signature.
func (c *Checker) inferCall(expr *ast.CallExpression) *Type {
	callee := c.inferExpr(expr.Function)
	name := ""
	if ident, ok := expr.Function.(*ast.Identifier); ok {
		name = ident.Value
	}

	if callee.Kind != KindFunction {
		for _, arg := range expr.Arguments {
			c.inferExpr(arg)
		}
		return anyType
	}

	for i, arg := range expr.Arguments {
		got := c.inferExpr(arg)
		if i >= len(callee.Params) {
			continue
		}
		if !conforms(got, callee.Params[i]) {
			if name != "" {
				c.report(arg, "Argument %d to '%s' has type %s, expected %s", i+1, name, got, callee.Params[i])
			} else {
				c.report(arg, "Argument %d has type %s, expected %s", i+1, got, callee.Params[i])
			}
		}
	}
	return callee.Return
}

func (c *Checker) inferArray(expr *ast.ArrayLiteral) *Type {
	if len(expr.Elements) == 0 {
		return &Type{Kind: KindArray, Elem: anyType}
	}
	elem := c.inferExpr(expr.Elements[0])
	for _, e := range expr.Elements[1:] {
		got := c.inferExpr(e)
		if got.Kind != elem.Kind {
			elem = anyType
		}
	}
	return &Type{Kind: KindArray, Elem: elem}
}

func (c *Checker) inferObject(expr *ast.ObjectLiteral) *Type {
	t := &Type{Kind: KindObject, Fields: make(map[string]*Type)}
	for _, field := range expr.Fields {
		if _, seen := t.Fields[field.Key]; !seen {
			t.Order = append(t.Order, field.Key)
		}
		t.Fields[field.Key] = c.inferExpr(field.Value)
	}
	return t
}
