package tally

import (
	"sort"

	"github.com/vocdoni/votegraph/contest"
	"github.com/vocdoni/votegraph/log"
	"github.com/vocdoni/votegraph/store"
)

// Condorcet implements §4.G's pairwise ("pwc") rule with ranked-pairs
// cycle-breaking: build the pairwise preference matrix, sort positive
// margins by (margin desc, head-to-head count desc), insert edges in that
// order rejecting any that would close a cycle, then take the first
// open_positions nodes of the resulting topological order as winners.
func Condorcet(ref *contest.Contest, batch []CVREntry, checks map[store.Digest]bool) *Result {
	r := newResult(ref)
	names := ref.ChoiceNames()

	for _, entry := range batch {
		ranks := make(map[string]int, len(entry.Contest.Selection))
		for i, name := range entry.Contest.Selection {
			ranks[name] = i
		}
		for _, a := range names {
			ra, aRanked := ranks[a]
			for _, b := range names {
				if a == b {
					continue
				}
				rb, bRanked := ranks[b]
				beats := (aRanked && !bRanked) || (aRanked && bRanked && ra < rb)
				if beats {
					r.PairwiseMatrix[[2]string{a, b}]++
				}
			}
		}
		r.trace(checks, entry.Digest, "pwc: accumulated ranks %v", entry.Contest.Selection)
	}

	type edge struct {
		a, b   string
		margin int
		count  int
	}
	var candidates []edge
	for _, a := range names {
		for _, b := range names {
			if a == b {
				continue
			}
			margin := r.PairwiseMatrix[[2]string{a, b}] - r.PairwiseMatrix[[2]string{b, a}]
			if margin > 0 {
				candidates = append(candidates, edge{a: a, b: b, margin: margin, count: r.PairwiseMatrix[[2]string{a, b}]})
			}
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].margin != candidates[j].margin {
			return candidates[i].margin > candidates[j].margin
		}
		return candidates[i].count > candidates[j].count
	})

	graph := make(map[string][]string, len(names))
	for _, e := range candidates {
		if reachable(graph, e.b, e.a) {
			log.Debugw("pwc: rejected edge, would create cycle", "from", e.a, "to", e.b)
			continue
		}
		graph[e.a] = append(graph[e.a], e.b)
		log.Debugw("pwc: accepted edge", "from", e.a, "to", e.b, "margin", e.margin)
	}

	order := topoOrder(names, graph)
	r.WinnerOrder = order

	seats := ref.OpenPositions
	if seats > len(order) {
		seats = len(order)
	}
	r.Winners = append([]string{}, order[:seats]...)

	return r
}

// reachable reports whether to is reachable from from by following graph
// edges, used to detect whether adding an edge would close a cycle.
func reachable(graph map[string][]string, from, to string) bool {
	if from == to {
		return true
	}
	visited := map[string]bool{}
	queue := []string{from}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if visited[n] {
			continue
		}
		visited[n] = true
		for _, next := range graph[n] {
			if next == to {
				return true
			}
			queue = append(queue, next)
		}
	}
	return false
}

// topoOrder computes a deterministic topological order over names given
// graph (a -> b meaning a beats b, so a precedes b): Kahn's algorithm,
// breaking ties among simultaneously-available nodes by names's order.
func topoOrder(names []string, graph map[string][]string) []string {
	indegree := make(map[string]int, len(names))
	for _, n := range names {
		indegree[n] = 0
	}
	for _, outs := range graph {
		for _, b := range outs {
			indegree[b]++
		}
	}

	remaining := append([]string{}, names...)
	var order []string
	for len(remaining) > 0 {
		idx := -1
		for i, n := range remaining {
			if indegree[n] == 0 {
				idx = i
				break
			}
		}
		if idx == -1 {
			// By construction (cycle-rejecting insertion) this cannot
			// happen; fall back to appending the rest in stable order
			// rather than looping forever.
			order = append(order, remaining...)
			break
		}
		n := remaining[idx]
		order = append(order, n)
		remaining = append(remaining[:idx], remaining[idx+1:]...)
		for _, b := range graph[n] {
			indegree[b]--
		}
	}
	return order
}
