// Package transform provides reversible recodings of a section's symbols that
// make them easier to entropy-code. Transformers can be chained with [Chain].
package transform

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dargueta/blockpress"
)

// Identity leaves the section unchanged.
type Identity struct{}

func (Identity) Name() string                           { return "none" }
func (Identity) Transform(_ *blockpress.Section) error { return nil }
func (Identity) Reverse(_ *blockpress.Section) error   { return nil }

// Chain applies a list of transformers in order. Reverse undoes them in the
// opposite order, so each stage sees exactly the section its forward pass
// produced.
//
// If a stage fails, the section is left as that stage left it; the pass over
// that block must be abandoned.
type Chain []blockpress.Transformer

func (c Chain) Name() string {
	if len(c) == 0 {
		return Identity{}.Name()
	}
	names := make([]string, len(c))
	for i, stage := range c {
		names[i] = stage.Name()
	}
	return strings.Join(names, "+")
}

func (c Chain) Transform(section *blockpress.Section) error {
	for _, stage := range c {
		if err := stage.Transform(section); err != nil {
			return err
		}
	}
	return nil
}

func (c Chain) Reverse(section *blockpress.Section) error {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i].Reverse(section); err != nil {
			return err
		}
	}
	return nil
}

var registry = map[string]func() blockpress.Transformer{
	"none":             func() blockpress.Transformer { return Identity{} },
	"delta":            func() blockpress.Transformer { return DeltaLeft{} },
	"mtf":              func() blockpress.Transformer { return MoveToFront{} },
	"mtf-lookbehind":   func() blockpress.Transformer { return MoveToFrontLookbehind{} },
	"zorder":           func() blockpress.Transformer { return ZOrder() },
	"hilbert":          func() blockpress.Transformer { return Hilbert() },
	"hilbert-adaptive": func() blockpress.Transformer { return HilbertAdaptive{} },
}

// Names returns the names [Parse] accepts for single transformers, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse looks up a transformer by name. Names joined with "+" produce a
// [Chain] applied left to right, e.g. "hilbert+mtf".
func Parse(name string) (blockpress.Transformer, error) {
	parts := strings.Split(name, "+")
	if len(parts) == 1 {
		return lookup(strings.TrimSpace(name))
	}

	chain := make(Chain, 0, len(parts))
	for _, part := range parts {
		stage, err := lookup(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		chain = append(chain, stage)
	}
	return chain, nil
}

func lookup(name string) (blockpress.Transformer, error) {
	constructor, ok := registry[name]
	if !ok {
		return nil, blockpress.ErrUnknownStrategy.WithMessage(
			fmt.Sprintf("no transformer named %q", name),
		)
	}
	return constructor(), nil
}
