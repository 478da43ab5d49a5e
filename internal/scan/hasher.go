package scan

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/eargollo/dupefinder/internal/monitor"
)

// headerBytes is the prefix length summed by HeaderChecksum.
const headerBytes = 256

// openFile opens candidates for checksumming. Replaced in tests.
var openFile = os.Open

// HeaderChecksum returns the sum of the byte values of the first 256 bytes
// of the file and the number of bytes read. It is a cheap pre-filter only.
func HeaderChecksum(path string) (int64, int, error) {
	f, err := openFile(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	var buf [headerBytes]byte
	n, err := io.ReadFull(f, buf[:])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return 0, n, err
	}
	var sum int64
	for _, b := range buf[:n] {
		sum += int64(b)
	}
	return sum, n, nil
}

// FullDigest streams the whole file through SHA-256.
func FullDigest(path string) ([]byte, int64, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return nil, n, err
	}
	return h.Sum(nil), n, nil
}

// headerPass computes the header checksum of every candidate, one group at a
// time, with up to HeaderHashers reads in flight. Progress is reported per group.
func (s *Scanner) headerPass(ctx context.Context, groups Groups, mon *monitor.Monitor, p *Progress, report ErrorReporter) {
	keys := groups.Keys()
	mon.SetProgress(len(keys), 0, "Calculate checksums...")

	for i, key := range keys {
		if ctx.Err() != nil {
			mon.ResetProgress()
			return
		}
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.cfg.HeaderHashers)
		for _, c := range groups[key] {
			g.Go(func() error {
				if gctx.Err() != nil {
					return nil
				}
				sum, n, err := HeaderChecksum(c.Path)
				p.BytesRead.Add(int64(n))
				s.metrics.Hashed(int64(n))
				if err != nil {
					c.failed = true
					report(c.Path, fmt.Errorf("%w: %s: %v", ErrChecksumRead, c.Path, err))
					return nil
				}
				c.Header = sum
				c.headerOK = true
				p.HeaderHashed.Add(1)
				return nil
			})
		}
		_ = g.Wait()
		mon.SetProgress(len(keys), i+1, "")
		s.metrics.Progress(mon.Progress())
	}
}

// fullDigests computes the digest of every candidate in group whose header
// checksum collides with another member's. Each file is read at most once.
func (s *Scanner) fullDigests(ctx context.Context, group []*Candidate, p *Progress, report ErrorReporter) {
	count := make(map[int64]int, len(group))
	for _, c := range group {
		if c.headerOK && !c.failed {
			count[c.Header]++
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.FullHashers)
	for _, c := range group {
		if !c.headerOK || c.failed || c.digest != nil || count[c.Header] < 2 {
			continue
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			d, n, err := FullDigest(c.Path)
			p.BytesRead.Add(n)
			s.metrics.Hashed(n)
			if err != nil {
				c.failed = true
				report(c.Path, fmt.Errorf("%w: %s: %v", ErrChecksumRead, c.Path, err))
				return nil
			}
			c.digest = d
			p.FullHashed.Add(1)
			return nil
		})
	}
	_ = g.Wait()
}
