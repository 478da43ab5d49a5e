package scan

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/eargollo/dupefinder/internal/catalog"
	"github.com/eargollo/dupefinder/internal/monitor"
	"github.com/eargollo/dupefinder/internal/tags"
)

// Candidate is one accepted file. It belongs to exactly one group.
type Candidate struct {
	Path string
	Size int64
	// Header is the additive checksum of the first headerBytes; 0 means unset.
	Header int64
	// Tags is populated in metadata mode.
	Tags map[string]string

	headerOK bool
	digest   []byte
	failed   bool // a checksum read failed; never matches anything
	fullKey  string
}

// Groups maps a grouping key to the candidates that share it.
type Groups map[string][]*Candidate

// Add appends c under key.
func (g Groups) Add(key string, c *Candidate) {
	g[key] = append(g[key], c)
}

// Prune drops every group with fewer than two members.
func (g Groups) Prune() {
	for k, v := range g {
		if len(v) < 2 {
			delete(g, k)
		}
	}
}

// Keys returns the group keys in sorted order.
func (g Groups) Keys() []string {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// contentKey is the byte length followed by the upper-case extension.
func contentKey(size int64, ext string) string {
	return strconv.FormatInt(size, 10) + ext
}

type keyed struct {
	key string
	c   *Candidate
}

// collect walks req.Root, classifies every file against the catalog and
// returns the pruned candidate groups. On cancellation the partial map is
// returned and callers must check ctx before using it.
func (s *Scanner) collect(ctx context.Context, req Request, mon *monitor.Monitor, p *Progress, report ErrorReporter) Groups {
	const bufSize = 1000
	files := make(chan FileInfo, bufSize)
	accepted := make(chan keyed, bufSize)

	go Walk(ctx, req.Root, s.cfg.Walkers, files, report)
	s.runClassifiers(ctx, req, mon, p, report, files, accepted)

	groups := make(Groups)
	for k := range accepted {
		groups.Add(k.key, k.c)
	}
	groups.Prune()
	return groups
}

// runClassifiers starts s.cfg.Walkers goroutines that turn walked files into
// keyed candidates. out is closed when in is exhausted or ctx is cancelled.
func (s *Scanner) runClassifiers(ctx context.Context, req Request, mon *monitor.Monitor, p *Progress, report ErrorReporter, in <-chan FileInfo, out chan<- keyed) {
	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Walkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for fi := range in {
				if ctx.Err() != nil {
					continue // drain so the walker can finish
				}
				p.FilesDiscovered.Add(1)

				k, ok := s.classify(req, fi, report)
				if !ok {
					continue
				}
				p.Accepted.Add(1)
				s.metrics.FileScanned()
				mon.PushScanned(fi.Path)

				select {
				case out <- k:
				case <-ctx.Done():
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(out)
	}()
}

// classify decides whether fi is a candidate and computes its grouping key.
// Unknown extensions and unreadable tags are reported; disabled extensions
// are skipped silently.
func (s *Scanner) classify(req Request, fi FileInfo, report ErrorReporter) (keyed, bool) {
	ext := catalog.Extension(fi.Path)
	if !req.Selection.IsKnown(ext) {
		report(fi.Path, fmt.Errorf("%w %s: %s", ErrUnknownExtension, displayExt(ext), fi.Path))
		return keyed{}, false
	}
	if !req.Selection.IsEnabled(ext) {
		return keyed{}, false
	}

	c := &Candidate{Path: fi.Path, Size: fi.Size}
	if req.Mode == ContentHash {
		return keyed{key: contentKey(fi.Size, ext), c: c}, true
	}

	m, err := s.tags.ReadTags(fi.Path)
	if err != nil {
		report(fi.Path, fmt.Errorf("%w: %s: %v", ErrMetadataRead, fi.Path, err))
		return keyed{}, false
	}
	key, err := tags.GroupingKey(m)
	if err != nil {
		report(fi.Path, fmt.Errorf("%w: %s: %v", ErrMetadataRead, fi.Path, err))
		return keyed{}, false
	}
	c.Tags = m
	c.fullKey = tags.FullKey(m)
	return keyed{key: key, c: c}, true
}

func displayExt(ext string) string {
	if ext == "" {
		return "(none)"
	}
	return ext
}
