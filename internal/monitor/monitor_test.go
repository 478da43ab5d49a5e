package monitor

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectionStaysAlignedUnderConcurrentPushes(t *testing.T) {
	m := New()
	const writers, perWriter = 8, 200

	var wg sync.WaitGroup
	stop := make(chan struct{})
	mismatch := make(chan string, 1)

	// Reader checks the invariant while writers push.
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			m.dupMu.Lock()
			d, s := len(m.duplicates), len(m.selected)
			m.dupMu.Unlock()
			if d != s {
				select {
				case mismatch <- fmt.Sprintf("duplicates=%d selected=%d", d, s):
				default:
				}
				return
			}
		}
	}()

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				m.PushDuplicate(Duplicate{Path: fmt.Sprintf("/w%d/f%d", w, i)})
			}
		}(w)
	}
	wg.Wait()
	close(stop)

	select {
	case msg := <-mismatch:
		t.Fatalf("selection out of step with duplicates: %s", msg)
	default:
	}
	assert.Equal(t, writers*perWriter, m.DuplicateCount())
	assert.Len(t, m.Selected(), writers*perWriter)

	m.Clear()
	assert.Zero(t, m.DuplicateCount())
	assert.Empty(t, m.Selected())
}

func TestSelectToggleAndRemove(t *testing.T) {
	m := New()
	for _, p := range []string{"/a", "/b", "/c", "/d"} {
		m.PushDuplicate(Duplicate{Path: p})
	}

	require.NoError(t, m.SetSelected(1, true))
	on, err := m.ToggleSelected(3)
	require.NoError(t, err)
	assert.True(t, on)
	assert.Equal(t, []bool{false, true, false, true}, m.Selected())

	sel := m.SelectedDuplicates()
	require.Len(t, sel, 2)
	assert.Equal(t, "/b", sel[0].Path)
	assert.Equal(t, "/d", sel[1].Path)

	assert.Equal(t, 2, m.RemoveDuplicates("/b", "/d", "/missing"))
	assert.Equal(t, []bool{false, false}, m.Selected())
	dups := m.Duplicates()
	require.Len(t, dups, 2)
	assert.Equal(t, "/a", dups[0].Path)
	assert.Equal(t, "/c", dups[1].Path)

	assert.ErrorIs(t, m.SetSelected(5, true), ErrIndexOutOfRange)
	_, err = m.ToggleSelected(-1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestProgressZeroMaxIsDefined(t *testing.T) {
	m := New()
	m.SetProgress(0, 0, "")
	p := m.Progress()
	assert.False(t, math.IsNaN(p) || math.IsInf(p, 0))
	assert.Equal(t, 1.0, p)

	m.SetProgress(4, 1, "Calculate checksums...")
	assert.Equal(t, 0.25, m.Progress())
	assert.Equal(t, "Calculate checksums...", m.Info())

	m.SetProgress(4, 2, "")
	assert.Equal(t, "Calculate checksums...", m.Info(), "empty info keeps the status line")

	m.ResetProgress()
	assert.Zero(t, m.Progress())
}

func TestStopCancelsBeginContext(t *testing.T) {
	m := New()
	ctx := m.Begin(context.Background())
	assert.Equal(t, Running, m.Control())
	assert.False(t, m.IsCancelled())

	m.SetProgress(10, 5, "")
	m.Stop()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled by Stop")
	}
	assert.Equal(t, StopRequested, m.Control())
	assert.True(t, m.IsCancelled())
	assert.Zero(t, m.Progress())

	// A fresh Begin resets the control state.
	ctx = m.Begin(context.Background())
	assert.Equal(t, Running, m.Control())
	assert.NoError(t, ctx.Err())

	m.Interrupt()
	assert.Error(t, ctx.Err())
	assert.Equal(t, "interrupted", m.Control().String())
}

func TestSinceHelpers(t *testing.T) {
	m := New()
	m.PushScanned("/1")
	m.PushScanned("/2")
	m.PushError("e1")
	m.PushDuplicate(Duplicate{Path: "/d"})

	assert.Equal(t, []string{"/2"}, m.ScannedSince(1))
	assert.Nil(t, m.ScannedSince(2))
	assert.Equal(t, []string{"e1"}, m.ErrorsSince(-3))
	assert.Nil(t, m.DuplicatesSince(1))
	assert.Len(t, m.DuplicatesSince(0), 1)
	assert.Equal(t, 2, m.ScannedCount())
	assert.Equal(t, 1, m.ErrorCount())
	assert.Equal(t, []string{"e1"}, m.Errors())
	assert.Equal(t, []string{"/1", "/2"}, m.Scanned())
}

func TestEndReleasesBeginContext(t *testing.T) {
	m := New()
	ctx := m.Begin(context.Background())
	m.PushDuplicate(Duplicate{Path: "/d"})
	m.SetInfo("1 duplicates written to file x")

	m.End()

	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.Equal(t, Running, m.Control())
	assert.False(t, m.IsCancelled())
	assert.Equal(t, 1, m.DuplicateCount())
	assert.Equal(t, "1 duplicates written to file x", m.Info())

	// A second End and a late Stop are harmless.
	m.End()
	m.Stop()
	assert.Equal(t, StopRequested, m.Control())
}
