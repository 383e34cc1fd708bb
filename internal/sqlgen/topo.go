package sqlgen

import (
	"slices"
	"strings"

	"github.com/koustreak/xmldbms/internal/relational"
)

// orderByDependency orders tables so that every table referenced by a
// foreign key precedes the tables referencing it (Kahn's algorithm, ties
// broken by qualified name). Tables on a reference cycle are appended in
// name order. Self-references and references to tables outside the input
// are ignored.
func orderByDependency(tables []*relational.Table) []*relational.Table {
	if len(tables) < 2 {
		return tables
	}

	byID := make(map[relational.TableID]*relational.Table, len(tables))
	for _, t := range tables {
		byID[t.ID()] = t
	}

	inDegree := make(map[relational.TableID]int, len(tables))
	dependents := make(map[relational.TableID][]relational.TableID)
	for _, t := range tables {
		seen := make(map[relational.TableID]bool)
		for _, fk := range t.ForeignKeys() {
			rt := fk.RemoteTable()
			if rt == nil || rt == t || byID[rt.ID()] != rt || seen[rt.ID()] {
				continue
			}
			seen[rt.ID()] = true
			inDegree[t.ID()]++
			dependents[rt.ID()] = append(dependents[rt.ID()], t.ID())
		}
	}

	byName := func(a, b relational.TableID) int { return strings.Compare(a.String(), b.String()) }

	var queue []relational.TableID
	for _, t := range tables {
		if inDegree[t.ID()] == 0 {
			queue = append(queue, t.ID())
		}
	}
	slices.SortFunc(queue, byName)

	result := make([]*relational.Table, 0, len(tables))
	done := make(map[relational.TableID]bool, len(tables))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		result = append(result, byID[id])
		done[id] = true

		for _, dep := range dependents[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
				slices.SortFunc(queue, byName)
			}
		}
	}

	if len(result) < len(tables) {
		rest := make([]*relational.Table, 0, len(tables)-len(result))
		for _, t := range tables {
			if !done[t.ID()] {
				rest = append(rest, t)
			}
		}
		slices.SortFunc(rest, func(a, b *relational.Table) int { return byName(a.ID(), b.ID()) })
		result = append(result, rest...)
	}
	return result
}
