// Copyright © 2024-present Lovania
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"github.com/Lovania-Networking-and-Software/Clousocket/internal/catalog"
)

// resolve walks a deserialized Command node and returns the handler it
// names plus the Data arguments collected along its right spine, per
// spec.md §4.6: "Handler-argument extraction walks the Data right-spine
// ... SubCommand routes the dispatch to the <cmd>_<sub> handler entry."
func resolve(cat *catalog.Catalog, cmd catalog.Command) (catalog.HandlerFunc, []string, bool) {
	switch next := cmd.Next.(type) {
	case catalog.SubCommand:
		h, ok := cat.SubHandler(cmd.This, next.This)
		if !ok {
			return nil, nil, false
		}
		return h, catalog.Args(next.Next), true
	default:
		h, ok := cat.Handler(cmd.This)
		if !ok {
			return nil, nil, false
		}
		return h, catalog.Args(cmd.Next), true
	}
}
