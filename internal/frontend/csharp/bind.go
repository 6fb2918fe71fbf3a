package csharp

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"excheck/internal/ast"
	"excheck/internal/binder"
	"excheck/internal/trace"
	"excheck/internal/types"
)

// Frontend parses C# and binds the resulting trees. Base holds the types
// known before any source is read; nil means the builtin catalog.
type Frontend struct {
	Parser
	Base *types.Catalog
}

func NewFrontend(base *types.Catalog) *Frontend {
	return &Frontend{Base: base}
}

// Method is one indexed method declaration.
type Method struct {
	Symbol *binder.Symbol
	Class  string // qualified containing type
	Doc    string // <member> document with resolved crefs, "" when undocumented

	minArity  int
	maxArity  int
	extension bool
}

func (m *Method) accepts(argc int) bool {
	if argc >= m.minArity && argc <= m.maxArity {
		return true
	}
	return m.extension && argc+1 >= m.minArity && argc+1 <= m.maxArity
}

// Binder answers symbol, documentation and type queries over the trees it
// was bound with. It is immutable after Bind and safe for concurrent use.
type Binder struct {
	universe     *types.Catalog
	methods      map[string][]*Method
	docs         map[*binder.Symbol]string
	classes      map[string]struct{}
	globalUsings []string
	order        []*Method
}

type pendingClass struct {
	name  string
	base  string
	scope scope
	tree  *ast.Tree
	node  ast.NodeID
}

// Bind indexes the type and method declarations of trees. Source types are
// added to a copy of the base catalog, their base types resolved in the
// scope of the declaration.
func (f *Frontend) Bind(ctx context.Context, trees []*ast.Tree) (binder.Binder, types.Universe, error) {
	b, err := f.BindIndex(ctx, trees)
	if err != nil {
		return nil, nil, err
	}
	return b, b.universe, nil
}

// BindIndex is Bind returning the concrete binder.
func (f *Frontend) BindIndex(ctx context.Context, trees []*ast.Tree) (*Binder, error) {
	_, span := trace.Start(ctx, trace.ScopePass, "bind")

	base := f.Base
	if base == nil {
		base = types.Builtin()
	}
	b := &Binder{
		universe: base.Clone(),
		methods:  make(map[string][]*Method),
		docs:     make(map[*binder.Symbol]string),
		classes:  make(map[string]struct{}),
	}
	for _, tree := range trees {
		b.globalUsings = append(b.globalUsings, globalUsings(tree)...)
	}

	var pending []pendingClass
	for _, tree := range trees {
		if err := ctx.Err(); err != nil {
			span.End(err.Error())
			return nil, err
		}
		tree.Walk(func(id ast.NodeID, n ast.Node) bool {
			if n.Kind == ast.KindClass && n.Name != "" {
				sc := b.scopeOf(tree, id)
				p := pendingClass{name: sc.qualify(n.Name), scope: sc, tree: tree, node: id}
				if ref, ok := baseTypeRef(tree, id); ok {
					p.base = tree.Node(ref).Name
				}
				pending = append(pending, p)
			}
			return !n.Kind.IsLeaf()
		})
	}
	for _, p := range pending {
		decl, _ := p.tree.Span(p.node)
		b.universe.Declare(p.name, "", decl)
		b.classes[p.name] = struct{}{}
	}
	for _, p := range pending {
		if p.base == "" {
			continue
		}
		if d, ok := p.scope.resolve(b.universe, p.base); ok && d.Name != p.name {
			decl, _ := p.tree.Span(p.node)
			b.universe.Declare(p.name, d.Name, decl)
		}
	}
	b.universe.Link()

	for _, tree := range trees {
		if err := ctx.Err(); err != nil {
			span.End(err.Error())
			return nil, err
		}
		tree.Walk(func(id ast.NodeID, n ast.Node) bool {
			if n.Kind == ast.KindMethod && n.Name != "" {
				b.addMethod(tree, id)
			}
			return !n.Kind.IsLeaf()
		})
	}

	span.WithExtra("types", strconv.Itoa(len(pending))).
		WithExtra("methods", strconv.Itoa(len(b.order))).
		End("")
	return b, nil
}

// Universe returns the catalog the binder resolves types against.
func (b *Binder) Universe() types.Universe { return b.universe }

// Methods returns the indexed methods in declaration order.
func (b *Binder) Methods() []*Method { return slices.Clone(b.order) }

func (b *Binder) scopeOf(tree *ast.Tree, node ast.NodeID) scope {
	sc := scopeAt(tree, node)
	sc.usings = append(sc.usings, b.globalUsings...)
	return sc
}

func (b *Binder) addMethod(tree *ast.Tree, id ast.NodeID) {
	n := tree.Node(id)
	sc := b.scopeOf(tree, id)
	decl, _ := tree.Span(id)
	m := &Method{
		Symbol: &binder.Symbol{Name: n.Name, Qualified: sc.qualify(n.Name), Decl: decl},
	}
	if len(sc.containers) > 0 {
		m.Class = sc.containers[len(sc.containers)-1]
	}
	m.minArity, m.maxArity, m.extension = parameters(tree, id)
	if raw := docComment(tree, id); raw != "" {
		m.Doc = fmt.Sprintf(`<member name="M:%s">%s</member>`, m.Symbol.Qualified, b.resolveCrefs(sc, raw))
		b.docs[m.Symbol] = m.Doc
	}
	b.methods[n.Name] = append(b.methods[n.Name], m)
	b.order = append(b.order, m)
}

// ResolveSymbol picks the method an invocation calls: by name, then by
// argument count, then by the receiver type or the enclosing types.
func (b *Binder) ResolveSymbol(tree *ast.Tree, node ast.NodeID) (*binder.Symbol, bool) {
	n := tree.Node(node)
	if n.Kind != ast.KindInvocation || n.Name == "" {
		return nil, false
	}
	cands := b.methods[n.Name]
	if len(cands) == 0 {
		return nil, false
	}
	argc := argumentCount(tree, node)
	cands = narrow(cands, func(m *Method) bool { return m.accepts(argc) })

	sc := b.scopeOf(tree, node)
	if recv, ok := receiver(tree, node); ok {
		switch text := compact(tree.NodeText(recv)); text {
		case "this", "base":
			cands = b.preferEnclosing(cands, sc)
		default:
			if d, ok := sc.resolve(b.universe, text); ok {
				if _, declared := b.classes[d.Name]; declared {
					cands = narrow(cands, func(m *Method) bool { return m.Class == d.Name })
				}
			}
		}
	} else {
		cands = b.preferEnclosing(cands, sc)
	}
	return cands[0].Symbol, true
}

// preferEnclosing keeps the candidates declared in the innermost containing
// type that declares any of them.
func (b *Binder) preferEnclosing(cands []*Method, sc scope) []*Method {
	for i := len(sc.containers) - 1; i >= 0; i-- {
		c := sc.containers[i]
		in := slices.DeleteFunc(slices.Clone(cands), func(m *Method) bool { return m.Class != c })
		if len(in) > 0 {
			return in
		}
	}
	return cands
}

// narrow filters cands, keeping all of them when nothing passes.
func narrow(cands []*Method, keep func(*Method) bool) []*Method {
	out := make([]*Method, 0, len(cands))
	for _, m := range cands {
		if keep(m) {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return cands
	}
	return out
}

func (b *Binder) Documentation(sym *binder.Symbol) (string, bool) {
	doc, ok := b.docs[sym]
	return doc, ok && doc != ""
}

// ResolveType resolves a type reference in the scope it is written in.
func (b *Binder) ResolveType(tree *ast.Tree, node ast.NodeID) (*types.Descriptor, bool) {
	name := tree.Node(node).Name
	if name == "" {
		name = compact(tree.NodeText(node))
	}
	return b.scopeOf(tree, node).resolve(b.universe, name)
}

var crefAttr = regexp.MustCompile(`cref\s*=\s*(?:"([^"]*)"|'([^']*)')`)

var qualifiedCref = regexp.MustCompile(`^[A-Za-z!]:`)

// resolveCrefs rewrites every cref of raw into its documentation id form:
// "T:<qualified>" for types found in scope, "!:<text>" for the rest.
func (b *Binder) resolveCrefs(sc scope, raw string) string {
	return crefAttr.ReplaceAllStringFunc(raw, func(attr string) string {
		m := crefAttr.FindStringSubmatch(attr)
		value := m[1]
		if value == "" {
			value = m[2]
		}
		if value == "" || qualifiedCref.MatchString(value) {
			return attr
		}
		name := value
		if i := strings.IndexByte(name, '{'); i >= 0 {
			name = name[:i]
		}
		if d, ok := sc.resolve(b.universe, name); ok {
			return `cref="T:` + d.Name + `"`
		}
		return `cref="!:` + value + `"`
	})
}

// globalUsings returns the namespaces imported with `global using` in tree.
func globalUsings(tree *ast.Tree) []string {
	var out []string
	for _, c := range tree.Node(tree.Root).Children {
		n := tree.Node(c)
		if n.Kind != ast.KindUsing {
			continue
		}
		name, ok := strings.CutPrefix(n.Name, "global ")
		if !ok || strings.HasPrefix(name, "static ") || strings.Contains(name, "=") {
			continue
		}
		out = append(out, name)
	}
	return out
}

// baseTypeRef returns the first type of a class base list.
func baseTypeRef(tree *ast.Tree, class ast.NodeID) (ast.NodeID, bool) {
	for _, c := range tree.Node(class).Children {
		if tree.Node(c).Kind != ast.KindExpr {
			continue
		}
		if ref, ok := tree.FirstChild(c, ast.KindTypeRef); ok {
			return ref, true
		}
	}
	return ast.NoNodeID, false
}

// argumentCount counts the arguments of an invocation.
func argumentCount(tree *ast.Tree, call ast.NodeID) int {
	sig := tree.Significant(call)
	if len(sig) == 0 {
		return 0
	}
	count := 0
	for _, c := range tree.Significant(sig[len(sig)-1]) {
		if tree.Node(c).Kind != ast.KindToken {
			count++
		}
	}
	return count
}

// receiver returns the object expression of a member access callee.
func receiver(tree *ast.Tree, call ast.NodeID) (ast.NodeID, bool) {
	sig := tree.Significant(call)
	if len(sig) == 0 || tree.Node(sig[0]).Kind != ast.KindExpr {
		return ast.NoNodeID, false
	}
	parts := tree.Significant(sig[0])
	if len(parts) < 3 || tree.Node(parts[len(parts)-2]).Text != "." {
		return ast.NoNodeID, false
	}
	return parts[0], true
}

// parameters returns the arity range of a method and whether it is an
// extension method.
func parameters(tree *ast.Tree, method ast.NodeID) (minArity, maxArity int, extension bool) {
	list, ok := parameterList(tree, method)
	if !ok {
		return 0, 0, false
	}
	for i, p := range tree.Significant(list) {
		pn := tree.Node(p)
		if pn.Kind == ast.KindToken {
			continue
		}
		text := strings.TrimSpace(tree.NodeText(p))
		switch {
		case strings.HasPrefix(text, "params "):
			maxArity = math.MaxInt
			continue
		case strings.Contains(text, "="):
		default:
			minArity++
		}
		if maxArity != math.MaxInt {
			maxArity++
		}
		if i == 1 && strings.HasPrefix(text, "this ") {
			extension = true
		}
	}
	return minArity, maxArity, extension
}

// parameterList finds the parenthesised list following the method name.
func parameterList(tree *ast.Tree, method ast.NodeID) (ast.NodeID, bool) {
	name := tree.Node(method).Name
	seenName := false
	for _, c := range tree.Significant(method) {
		n := tree.Node(c)
		if !seenName {
			seenName = n.Kind == ast.KindIdent && n.Text == name
			continue
		}
		if n.Kind != ast.KindExpr {
			continue
		}
		if sig := tree.Significant(c); len(sig) > 0 && tree.Node(sig[0]).Text == "(" {
			return c, true
		}
	}
	return ast.NoNodeID, false
}

// docComment collects the documentation comments right before a
// declaration and strips their comment markers.
func docComment(tree *ast.Tree, decl ast.NodeID) string {
	parent := tree.Parent(decl)
	if !parent.IsValid() {
		return ""
	}
	siblings := tree.Node(parent).Children
	idx := slices.Index(siblings, decl)
	var lines []string
	for i := idx - 1; i >= 0; i-- {
		n := tree.Node(siblings[i])
		if n.Kind == ast.KindTrivia {
			continue
		}
		if n.Kind != ast.KindComment {
			break
		}
		switch {
		case strings.HasPrefix(n.Text, "///"):
			lines = append(lines, strings.TrimPrefix(strings.TrimPrefix(n.Text, "///"), " "))
		case strings.HasPrefix(n.Text, "/**"):
			lines = append(lines, blockDoc(n.Text))
		}
	}
	slices.Reverse(lines)
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func blockDoc(text string) string {
	text = strings.TrimSuffix(strings.TrimPrefix(text, "/**"), "*/")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		l = strings.TrimLeft(l, " \t")
		l = strings.TrimPrefix(l, "*")
		lines[i] = strings.TrimPrefix(l, " ")
	}
	return strings.Join(lines, "\n")
}
