// Package coder turns a block of palette indices into bytes and back.
package coder

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dargueta/blockpress"
)

var registry = map[string]func() blockpress.Coder{
	"arithmetic": func() blockpress.Coder { return ArithmeticCoding{} },
	"bytewise":   func() blockpress.Coder { return Bytewise{} },
}

// Names returns the names of all known coders, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse looks up a coder by name.
func Parse(name string) (blockpress.Coder, error) {
	constructor, ok := registry[strings.TrimSpace(name)]
	if !ok {
		return nil, blockpress.ErrUnknownStrategy.WithMessage(
			fmt.Sprintf("no coder named %q", name),
		)
	}
	return constructor(), nil
}
