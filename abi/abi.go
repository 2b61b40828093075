// Package abi describes contract functions and builds call data for them.
package abi

import (
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/clydemeng/yulvm/core/types"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
)

// State mutability tags.
const (
	Pure       = "pure"
	View       = "view"
	NonPayable = "nonpayable"
	Payable    = "payable"
)

// Argument is a named, typed function parameter.
type Argument struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Function describes one contract entry point as produced by the compiler
// front end.
type Function struct {
	Name            string     `json:"name"`
	Inputs          []Argument `json:"inputs"`
	Outputs         []Argument `json:"outputs"`
	StateMutability string     `json:"stateMutability"`
}

// Signature is the canonical "name(type1,type2)" form of the function.
func (f *Function) Signature() string {
	names := make([]string, len(f.Inputs))
	for i, in := range f.Inputs {
		names[i] = in.Type
	}
	return f.Name + "(" + strings.Join(names, ",") + ")"
}

// Selector of the function signature.
func (f *Function) Selector() [4]byte { return Selector(f.Signature()) }

// ReadOnly reports whether the function promises not to modify state.
func (f *Function) ReadOnly() bool {
	return f.StateMutability == View || f.StateMutability == Pure
}

// Validate checks that every parameter type is a known ABI type.
func (f *Function) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("%w: function without a name", types.ErrInvalidOperation)
	}
	for _, args := range [][]Argument{f.Inputs, f.Outputs} {
		for _, a := range args {
			if err := checkIntWidths(a.Type); err != nil {
				return fmt.Errorf("%w: %s: %v", types.ErrInvalidOperation, f.Name, err)
			}
			if _, err := abi.NewType(a.Type, "", nil); err != nil {
				return fmt.Errorf("%w: %s: %v", types.ErrInvalidOperation, f.Name, err)
			}
		}
	}
	return nil
}

var intWidthRe = regexp.MustCompile(`\bu?int(\d+)`)

// checkIntWidths rejects intN and uintN unless N is a multiple of 8 in
// 8..256.
func checkIntWidths(typ string) error {
	for _, m := range intWidthRe.FindAllStringSubmatch(typ, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 8 || n > 256 || n%8 != 0 {
			return fmt.Errorf("invalid integer width in %q", m[0])
		}
	}
	return nil
}

// Selector returns the first four bytes of the Keccak-256 hash of sig. The
// string is hashed as given; callers pass the full canonical signature to
// get selectors compatible with other tooling.
func Selector(sig string) [4]byte {
	var sel [4]byte
	copy(sel[:], crypto.Keccak256([]byte(sig)))
	return sel
}

// ParseSignature splits "name(t1,t2)" into the name and parameter types.
// Commas inside tuple types do not split. A bare name without parentheses
// has no parameter list and reports ok=false, as does a list with
// unbalanced parentheses.
func ParseSignature(sig string) (name string, params []string, ok bool) {
	open := strings.IndexByte(sig, '(')
	if open < 0 || !strings.HasSuffix(sig, ")") {
		return sig, nil, false
	}
	name, inner := sig[:open], sig[open+1:len(sig)-1]
	if inner == "" {
		return name, nil, true
	}
	depth, start := 0, 0
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '(':
			depth++
		case ')':
			if depth--; depth < 0 {
				return sig, nil, false
			}
		case ',':
			if depth == 0 {
				params = append(params, inner[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return sig, nil, false
	}
	return name, append(params, inner[start:]), true
}

// LoadJSON reads a standard JSON ABI and returns its functions sorted by
// name.
func LoadJSON(r io.Reader) ([]Function, error) {
	parsed, err := abi.JSON(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidOperation, err)
	}
	out := make([]Function, 0, len(parsed.Methods))
	for _, m := range parsed.Methods {
		out = append(out, Function{
			Name:            m.RawName,
			Inputs:          fromArguments(m.Inputs),
			Outputs:         fromArguments(m.Outputs),
			StateMutability: m.StateMutability,
		})
	}
	slices.SortFunc(out, func(a, b Function) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func fromArguments(args abi.Arguments) []Argument {
	out := make([]Argument, len(args))
	for i, a := range args {
		out[i] = Argument{Name: a.Name, Type: a.Type.String()}
	}
	return out
}
