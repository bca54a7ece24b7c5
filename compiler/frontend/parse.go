package frontend

import (
	"context"

	"tlog.app/go/errors"
)

// Parse parses src as a MIL surface-syntax source unit named name.
func Parse(ctx context.Context, name string, src []byte) (*File, error) {
	p := &parser{s: &scanner{name: name, src: src}}

	f := &File{Name: name}

	for !p.s.eof() {
		switch {
		case p.s.consumeKeyword("top"):
			t, err := p.parseTop()
			if err != nil {
				return nil, errors.Wrap(err, "%s: top", name)
			}

			f.Tops = append(f.Tops, t)
		case p.s.consumeKeyword("block"):
			b, err := p.parseBlock()
			if err != nil {
				return nil, errors.Wrap(err, "%s: block", name)
			}

			f.Blocks = append(f.Blocks, b)
		default:
			return nil, errors.New("%s: offset %d: expected 'top' or 'block'", name, p.s.pos)
		}
	}

	return f, nil
}

type parser struct {
	s *scanner
}

func (p *parser) parseTop() (*TopDecl, error) {
	pos := p.s.pos

	name, ok := p.s.ident()
	if !ok {
		return nil, errors.New("offset %d: expected top name", pos)
	}

	if !p.s.consumeByte(':') {
		return nil, errors.New("offset %d: expected ':' after top name", p.s.pos)
	}

	typ, ok := p.s.ident()
	if !ok {
		return nil, errors.New("offset %d: expected top type", p.s.pos)
	}

	if !p.s.consumeByte('=') {
		return nil, errors.New("offset %d: expected '=' in top decl", p.s.pos)
	}

	expr, err := p.parseTailExpr()
	if err != nil {
		return nil, errors.Wrap(err, "top %s", name)
	}

	return &TopDecl{Name: name, Type: typ, Expr: expr, Pos: pos}, nil
}

func (p *parser) parseBlock() (*BlockDecl, error) {
	pos := p.s.pos

	name, ok := p.s.ident()
	if !ok {
		return nil, errors.New("offset %d: expected block name", pos)
	}

	if !p.s.consumeByte('(') {
		return nil, errors.New("offset %d: expected '(' after block name", p.s.pos)
	}

	var params []Param

	for !p.s.consumeByte(')') {
		if len(params) > 0 && !p.s.consumeByte(',') {
			return nil, errors.New("offset %d: expected ',' or ')' in param list", p.s.pos)
		}

		pname, ok := p.s.ident()
		if !ok {
			return nil, errors.New("offset %d: expected param name", p.s.pos)
		}

		if !p.s.consumeByte(':') {
			return nil, errors.New("offset %d: expected ':' after param name", p.s.pos)
		}

		ptype, ok := p.s.ident()
		if !ok {
			return nil, errors.New("offset %d: expected param type", p.s.pos)
		}

		params = append(params, Param{Name: pname, Type: ptype})
	}

	if !p.s.consumeToken("->") {
		return nil, errors.New("offset %d: expected '->' after block params", p.s.pos)
	}

	if !p.s.consumeByte('(') {
		return nil, errors.New("offset %d: expected '(' before result types", p.s.pos)
	}

	var results []string

	for !p.s.consumeByte(')') {
		if len(results) > 0 && !p.s.consumeByte(',') {
			return nil, errors.New("offset %d: expected ',' or ')' in result list", p.s.pos)
		}

		rtype, ok := p.s.ident()
		if !ok {
			return nil, errors.New("offset %d: expected result type", p.s.pos)
		}

		results = append(results, rtype)
	}

	if !p.s.consumeByte('{') {
		return nil, errors.New("offset %d: expected '{' before block body", p.s.pos)
	}

	b := &BlockDecl{Name: name, Params: params, ResultTypes: results, Pos: pos}

	for {
		switch {
		case p.s.consumeKeyword("let"):
			l, err := p.parseLet()
			if err != nil {
				return nil, errors.Wrap(err, "block %s", name)
			}

			b.Lets = append(b.Lets, l)
		case p.s.consumeKeyword("return"):
			r, err := p.parseReturn()
			if err != nil {
				return nil, errors.Wrap(err, "block %s", name)
			}

			b.Term = r
		case p.s.consumeKeyword("if"):
			i, err := p.parseIf()
			if err != nil {
				return nil, errors.Wrap(err, "block %s", name)
			}

			b.Term = i
		case p.s.consumeKeyword("call"):
			c, err := p.parseTailCall()
			if err != nil {
				return nil, errors.Wrap(err, "block %s", name)
			}

			b.Term = c
		default:
			return nil, errors.New("offset %d: expected let/return/if/call in block %s", p.s.pos, name)
		}

		if b.Term != nil {
			break
		}
	}

	if !p.s.consumeByte('}') {
		return nil, errors.New("offset %d: expected '}' to close block %s", p.s.pos, name)
	}

	return b, nil
}

func (p *parser) parseLet() (*LetStmt, error) {
	pos := p.s.pos

	first, ok := p.s.ident()
	if !ok {
		return nil, errors.New("offset %d: expected bound name after 'let'", pos)
	}

	vars := []string{first}

	for p.s.consumeByte(',') {
		v, ok := p.s.ident()
		if !ok {
			return nil, errors.New("offset %d: expected bound name after ','", p.s.pos)
		}

		vars = append(vars, v)
	}

	if !p.s.consumeByte('=') {
		return nil, errors.New("offset %d: expected '=' in let", p.s.pos)
	}

	expr, err := p.parseTailExpr()
	if err != nil {
		return nil, errors.Wrap(err, "let %v", vars)
	}

	return &LetStmt{Vars: vars, Expr: expr, Pos: pos}, nil
}

func (p *parser) parseTailExpr() (TailExpr, error) {
	pos := p.s.pos

	name, ok := p.s.ident()
	if !ok {
		return nil, errors.New("offset %d: expected primitive or block name", pos)
	}

	if name == "call" {
		target, ok := p.s.ident()
		if !ok {
			return nil, errors.New("offset %d: expected call target", p.s.pos)
		}

		args, err := p.parseArgs()
		if err != nil {
			return nil, errors.Wrap(err, "call %s", target)
		}

		return CallExpr{Target: target, Args: args, Pos: pos}, nil
	}

	args, err := p.parseArgs()
	if err != nil {
		return nil, errors.Wrap(err, "prim %s", name)
	}

	return PrimExpr{Name: name, Args: args, Pos: pos}, nil
}

func (p *parser) parseTailCall() (*TailCallStmt, error) {
	pos := p.s.pos

	target, ok := p.s.ident()
	if !ok {
		return nil, errors.New("offset %d: expected call target", pos)
	}

	args, err := p.parseArgs()
	if err != nil {
		return nil, errors.Wrap(err, "call %s", target)
	}

	return &TailCallStmt{Call: CallExpr{Target: target, Args: args, Pos: pos}, Pos: pos}, nil
}

func (p *parser) parseArgs() ([]AtomExpr, error) {
	if !p.s.consumeByte('(') {
		return nil, errors.New("offset %d: expected '('", p.s.pos)
	}

	var args []AtomExpr

	for !p.s.consumeByte(')') {
		if len(args) > 0 && !p.s.consumeByte(',') {
			return nil, errors.New("offset %d: expected ',' or ')' in argument list", p.s.pos)
		}

		a, err := p.parseAtom()
		if err != nil {
			return nil, err
		}

		args = append(args, a)
	}

	return args, nil
}

func (p *parser) parseAtom() (AtomExpr, error) {
	pos := p.s.pos

	if v, ok := p.s.number(); ok {
		return IntExpr{Value: v, Pos: pos}, nil
	}

	if id, ok := p.s.ident(); ok {
		switch id {
		case "true":
			return BoolExpr{Value: true, Pos: pos}, nil
		case "false":
			return BoolExpr{Value: false, Pos: pos}, nil
		default:
			return IdentExpr{Name: id, Pos: pos}, nil
		}
	}

	return nil, errors.New("offset %d: expected an atom", pos)
}

func (p *parser) parseReturn() (*ReturnStmt, error) {
	pos := p.s.pos

	var args []AtomExpr

	for {
		a, err := p.parseAtom()
		if err != nil {
			return nil, errors.Wrap(err, "return")
		}

		args = append(args, a)

		if !p.s.consumeByte(',') {
			break
		}
	}

	return &ReturnStmt{Args: args, Pos: pos}, nil
}

func (p *parser) parseIf() (*IfStmt, error) {
	pos := p.s.pos

	cond, err := p.parseAtom()
	if err != nil {
		return nil, errors.Wrap(err, "if condition")
	}

	then, err := p.parseBracedCall()
	if err != nil {
		return nil, errors.Wrap(err, "then branch")
	}

	if !p.s.consumeKeyword("else") {
		return nil, errors.New("offset %d: expected 'else' after if-then", p.s.pos)
	}

	els, err := p.parseBracedCall()
	if err != nil {
		return nil, errors.Wrap(err, "else branch")
	}

	return &IfStmt{Cond: cond, Then: then, Else: els, Pos: pos}, nil
}

// parseBracedCall parses `{ call NAME(args) }`, the body form used by
// both arms of an if statement.
func (p *parser) parseBracedCall() (CallExpr, error) {
	if !p.s.consumeByte('{') {
		return CallExpr{}, errors.New("offset %d: expected '{'", p.s.pos)
	}

	if !p.s.consumeKeyword("call") {
		return CallExpr{}, errors.New("offset %d: expected 'call'", p.s.pos)
	}

	pos := p.s.pos

	target, ok := p.s.ident()
	if !ok {
		return CallExpr{}, errors.New("offset %d: expected call target", p.s.pos)
	}

	args, err := p.parseArgs()
	if err != nil {
		return CallExpr{}, errors.Wrap(err, "call %s", target)
	}

	if !p.s.consumeByte('}') {
		return CallExpr{}, errors.New("offset %d: expected '}'", p.s.pos)
	}

	return CallExpr{Target: target, Args: args, Pos: pos}, nil
}
