// Copyright 2023 Sneller, Inc.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

package expr

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// BuiltinOp is a scalar function
type BuiltinOp int

const (
	Coalesce BuiltinOp = iota
	NullIf
	Abs
	Round
	Lower
	Upper
	Length

	unknownBuiltin
)

func mismatch(want, got int) error {
	return errsyntaxf("got %d args; need %d", got, want)
}

func errtypef(n Node, f string, args ...interface{}) error {
	return &TypeError{
		At:  n,
		Msg: fmt.Sprintf(f, args...),
	}
}

func errsyntaxf(f string, args ...interface{}) error {
	return &SyntaxError{
		Pos: -1,
		Msg: fmt.Sprintf(f, args...),
	}
}

// fixedArgs can be used to specify
// the type arguments for a builtin function
// when the argument length is fixed
func fixedArgs(lst ...TypeSet) func(Hint, []Node) error {
	return func(h Hint, args []Node) error {
		if len(lst) != len(args) {
			return mismatch(len(lst), len(args))
		}
		for i := range args {
			if !maybe(TypeOf(args[i], h), lst[i]) {
				return errtypef(args[i], "not compatible with type %s", lst[i])
			}
		}
		return nil
	}
}

func checkCoalesce(h Hint, args []Node) error {
	if len(args) == 0 {
		return errsyntaxf("COALESCE needs at least one argument")
	}
	return nil
}

func checkRound(h Hint, args []Node) error {
	if len(args) < 1 || len(args) > 2 {
		return errsyntaxf("ROUND expects 1 or 2 arguments, but found %d", len(args))
	}
	if !maybe(TypeOf(args[0], h), NumericType) {
		return errtypef(args[0], "not a number")
	}
	if len(args) == 2 {
		if _, ok := args[1].(Integer); !ok {
			return errsyntaxf("ROUND requires a constant integer number of digits")
		}
	}
	return nil
}

// builtin information; used in the builtin LUT
type binfo struct {
	name string
	// check, if non-nil, should examine
	// the arguments and return an error
	// if they are not acceptable
	check func(Hint, []Node) error
	// ret computes the result type
	// from the argument types
	ret func(Hint, []Node) TypeSet
}

func retFirst(h Hint, args []Node) TypeSet {
	if len(args) == 0 {
		return NullType
	}
	return TypeOf(args[0], h)
}

func retUnion(h Hint, args []Node) TypeSet {
	out := NoType
	for i := range args {
		out |= TypeOf(args[i], h)
	}
	return out
}

func retType(t TypeSet) func(Hint, []Node) TypeSet {
	return func(Hint, []Node) TypeSet { return t }
}

// builtinInfo is filled in by init;
// its check functions refer to TypeOf,
// which refers back to builtinInfo
var builtinInfo [unknownBuiltin]binfo

func init() {
	builtinInfo = [unknownBuiltin]binfo{
		Coalesce: {name: "COALESCE", check: checkCoalesce, ret: retUnion},
		NullIf: {name: "NULLIF", check: func(h Hint, args []Node) error {
			if len(args) != 2 {
				return mismatch(2, len(args))
			}
			return nil
		}, ret: func(h Hint, args []Node) TypeSet { return retFirst(h, args) | NullType }},
		Abs:    {name: "ABS", check: fixedArgs(NumericType), ret: retFirst},
		Round:  {name: "ROUND", check: checkRound, ret: retFirst},
		Lower:  {name: "LOWER", check: fixedArgs(StringType), ret: retType(StringType | NullType)},
		Upper:  {name: "UPPER", check: fixedArgs(StringType), ret: retType(StringType | NullType)},
		Length: {name: "LENGTH", check: fixedArgs(StringType), ret: retType(IntegerType | NullType)},
	}
}

func (b BuiltinOp) String() string {
	if b >= 0 && b < unknownBuiltin {
		return builtinInfo[b].name
	}
	return "<unknown builtin>"
}

// builtinByName returns the builtin
// with the given case-insensitive name
func builtinByName(name string) (BuiltinOp, bool) {
	for i := range builtinInfo {
		if strings.EqualFold(builtinInfo[i].name, name) {
			return BuiltinOp(i), true
		}
	}
	return unknownBuiltin, false
}

// Builtin is a Node that represents
// a call to a builtin scalar function
type Builtin struct {
	Func BuiltinOp
	Args []Node
}

// Call yields a Builtin
func Call(op BuiltinOp, args ...Node) *Builtin {
	return &Builtin{Func: op, Args: args}
}

func (b *Builtin) text(p *printer) {
	p.WriteString(b.Func.String())
	p.WriteByte('(')
	for i := range b.Args {
		if i > 0 {
			p.WriteString(", ")
		}
		b.Args[i].text(p)
	}
	p.WriteByte(')')
}

func (b *Builtin) walk(v Visitor) {
	for i := range b.Args {
		Walk(v, b.Args[i])
	}
}

func (b *Builtin) rewrite(r Rewriter) Node {
	for i := range b.Args {
		b.Args[i] = Rewrite(r, b.Args[i])
	}
	return b
}

func (b *Builtin) Equals(x Node) bool {
	xb, ok := x.(*Builtin)
	return ok && b.Func == xb.Func && slices.EqualFunc(b.Args, xb.Args, Equal)
}

func (b *Builtin) check(h Hint) error {
	if b.Func < 0 || b.Func >= unknownBuiltin {
		return errsyntaxf("unknown builtin %d", int(b.Func))
	}
	if c := builtinInfo[b.Func].check; c != nil {
		return c(h, b.Args)
	}
	return nil
}

func (b *Builtin) typeof(h Hint) TypeSet {
	if b.Func < 0 || b.Func >= unknownBuiltin {
		return AnyType
	}
	return builtinInfo[b.Func].ret(h, b.Args)
}
