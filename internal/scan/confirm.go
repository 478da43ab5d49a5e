package scan

import (
	"bytes"
	"context"
	"sort"

	"github.com/eargollo/dupefinder/internal/monitor"
)

// unionFind tracks which candidates of one group are known to be identical.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	u := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range u.parent {
		u.parent[i] = i
	}
	return u
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}

// sets returns every class with two or more members, as sorted index lists.
func (u *unionFind) sets() [][]int {
	byRoot := make(map[int][]int)
	for i := range u.parent {
		r := u.find(i)
		byRoot[r] = append(byRoot[r], i)
	}
	var out [][]int
	for _, members := range byRoot {
		if len(members) > 1 {
			out = append(out, members)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// matchFunc reports whether two candidates of the same group are duplicates.
type matchFunc func(a, b *Candidate) bool

func contentMatch(a, b *Candidate) bool {
	if a.failed || b.failed || !a.headerOK || !b.headerOK {
		return false
	}
	if a.Header != b.Header {
		return false
	}
	return a.digest != nil && bytes.Equal(a.digest, b.digest)
}

func metadataMatch(a, b *Candidate) bool {
	return a.fullKey != "" && a.fullKey == b.fullKey
}

// confirmGroup compares every pair of group and returns the confirmed sets.
// Pairs already known to share a set are not compared again.
func confirmGroup(group []*Candidate, match matchFunc) [][]*Candidate {
	u := newUnionFind(len(group))
	for i := 0; i < len(group)-1; i++ {
		for j := i + 1; j < len(group); j++ {
			if u.find(i) == u.find(j) {
				continue
			}
			if match(group[i], group[j]) {
				u.union(i, j)
			}
		}
	}
	var out [][]*Candidate
	for _, idx := range u.sets() {
		set := make([]*Candidate, len(idx))
		for k, i := range idx {
			set[k] = group[i]
		}
		sort.Slice(set, func(a, b int) bool { return set[a].Path < set[b].Path })
		out = append(out, set)
	}
	return out
}

// confirmPass confirms each group in key order and pushes every member of a
// confirmed set to mon as soon as its group is done.
func (s *Scanner) confirmPass(ctx context.Context, mode Mode, groups Groups, mon *monitor.Monitor, p *Progress, report ErrorReporter) []monitor.Duplicate {
	keys := groups.Keys()
	mon.SetProgress(len(keys), 0, "Check for duplicates...")

	match := contentMatch
	if mode == MetadataKey {
		match = metadataMatch
	}

	var dups []monitor.Duplicate
	set := 0
	for i, key := range keys {
		if ctx.Err() != nil {
			mon.ResetProgress()
			return dups
		}
		group := groups[key]
		if mode == ContentHash {
			s.fullDigests(ctx, group, p, report)
			if ctx.Err() != nil {
				mon.ResetProgress()
				return dups
			}
		}
		for _, members := range confirmGroup(group, match) {
			for _, c := range members {
				d := monitor.Duplicate{Path: c.Path, Size: c.Size, Set: set, Tags: c.Tags}
				dups = append(dups, d)
				mon.PushDuplicate(d)
			}
			set++
		}
		mon.SetProgress(len(keys), i+1, "")
		s.metrics.Progress(mon.Progress())
	}
	return dups
}
