package ast

// Kind is the closed set of node kinds the checker understands. Every switch
// over Kind in this module lists all members, so adding a kind means
// revisiting each analysis and transform site.
type Kind uint8

const (
	KindInvalid Kind = iota

	// листья
	KindToken   // keyword or punctuation
	KindIdent   // identifier
	KindTrivia  // whitespace between tokens
	KindComment // line/block/doc comment

	// контейнеры
	KindDocument
	KindUsing
	KindNamespace
	KindClass
	KindMethod
	KindBlock
	KindStatement
	KindTry
	KindCatch
	KindCatchDecl
	KindFinally
	KindInvocation
	KindTypeRef
	KindExpr // any other syntactic container

	kindCount
)

var kindNames = [kindCount]string{
	KindInvalid:    "invalid",
	KindToken:      "token",
	KindIdent:      "ident",
	KindTrivia:     "trivia",
	KindComment:    "comment",
	KindDocument:   "document",
	KindUsing:      "using",
	KindNamespace:  "namespace",
	KindClass:      "class",
	KindMethod:     "method",
	KindBlock:      "block",
	KindStatement:  "statement",
	KindTry:        "try",
	KindCatch:      "catch",
	KindCatchDecl:  "catch_decl",
	KindFinally:    "finally",
	KindInvocation: "invocation",
	KindTypeRef:    "type_ref",
	KindExpr:       "expr",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "unknown"
}

// IsLeaf reports whether nodes of this kind carry text instead of children.
func (k Kind) IsLeaf() bool {
	switch k {
	case KindToken, KindIdent, KindTrivia, KindComment:
		return true
	case KindInvalid, KindDocument, KindUsing, KindNamespace, KindClass, KindMethod,
		KindBlock, KindStatement, KindTry, KindCatch, KindCatchDecl, KindFinally,
		KindInvocation, KindTypeRef, KindExpr, kindCount:
		return false
	}
	return false
}

// IsStatement reports whether the kind is statement-like: a complete unit
// that may be wrapped in a try block.
func (k Kind) IsStatement() bool {
	switch k {
	case KindBlock, KindStatement, KindTry:
		return true
	case KindInvalid, KindToken, KindIdent, KindTrivia, KindComment, KindDocument,
		KindUsing, KindNamespace, KindClass, KindMethod, KindCatch, KindCatchDecl,
		KindFinally, KindInvocation, KindTypeRef, KindExpr, kindCount:
		return false
	}
	return false
}

// IsDeclaration reports whether the kind introduces a named declaration.
func (k Kind) IsDeclaration() bool {
	switch k {
	case KindNamespace, KindClass, KindMethod:
		return true
	case KindInvalid, KindToken, KindIdent, KindTrivia, KindComment, KindDocument,
		KindUsing, KindBlock, KindStatement, KindTry, KindCatch, KindCatchDecl,
		KindFinally, KindInvocation, KindTypeRef, KindExpr, kindCount:
		return false
	}
	return false
}

// IsTrivia reports whether the kind is skipped when looking for significant
// children.
func (k Kind) IsTrivia() bool {
	return k == KindTrivia || k == KindComment
}
