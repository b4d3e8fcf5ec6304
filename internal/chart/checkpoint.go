package chart

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/wonny/supplycast/internal/artifacts"
	"github.com/wonny/supplycast/internal/contracts"
)

// Checkpoint is the resumable partial output of a chart run.
// Rows already present are skipped on restart; new rows are flushed every flushEvery additions.
type Checkpoint struct {
	path       string
	flushEvery int
	rows       []contracts.ChartedRow
	done       map[contracts.SeriesKey]struct{}
	resumed    int
	pending    int
}

// OpenCheckpoint loads the partial output at path; a missing file starts empty
func OpenCheckpoint(path string, flushEvery int) (*Checkpoint, error) {
	if flushEvery <= 0 {
		flushEvery = 1
	}
	cp := &Checkpoint{
		path:       path,
		flushEvery: flushEvery,
		done:       make(map[contracts.SeriesKey]struct{}),
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return cp, nil
	}

	rows, err := artifacts.ReadCharted(path)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	for _, r := range rows {
		cp.rows = append(cp.rows, r)
		cp.done[r.Key()] = struct{}{}
	}
	cp.resumed = len(rows)
	return cp, nil
}

// Retain drops recovered rows that no longer match current and returns how many.
// A row is stale when its key is gone or its forecast inputs changed.
func (c *Checkpoint) Retain(current []contracts.ExtendedRow) int {
	want := make(map[contracts.SeriesKey]contracts.ExtendedRow, len(current))
	for _, r := range current {
		want[r.Key()] = r
	}

	kept := c.rows[:0]
	dropped := 0
	for _, r := range c.rows {
		if w, ok := want[r.Key()]; ok && sameInputs(r.ExtendedRow, w) {
			kept = append(kept, r)
			continue
		}
		delete(c.done, r.Key())
		dropped++
	}
	c.rows = kept
	c.resumed = max(c.resumed-dropped, 0)
	return dropped
}

func sameInputs(a, b contracts.ExtendedRow) bool {
	return a.Algorithm == b.Algorithm &&
		a.Window == b.Window &&
		a.Forecast == b.Forecast &&
		a.ProductID == b.ProductID &&
		a.SiteID == b.SiteID
}

// Path returns the checkpoint file
func (c *Checkpoint) Path() string {
	return c.path
}

// Done reports whether key was already charted
func (c *Checkpoint) Done(key contracts.SeriesKey) bool {
	_, ok := c.done[key]
	return ok
}

// Resumed is the number of rows recovered from a previous run
func (c *Checkpoint) Resumed() int {
	return c.resumed
}

// Len is the number of charted rows
func (c *Checkpoint) Len() int {
	return len(c.rows)
}

// Add records row and flushes when the period is reached
func (c *Checkpoint) Add(row contracts.ChartedRow) (flushed bool, err error) {
	if c.Done(row.Key()) {
		return false, nil
	}
	c.rows = append(c.rows, row)
	c.done[row.Key()] = struct{}{}
	c.pending++

	if c.pending < c.flushEvery {
		return false, nil
	}
	return true, c.Flush()
}

// Flush writes every charted row to disk
func (c *Checkpoint) Flush() error {
	if err := artifacts.WriteCharted(c.path, c.rows); err != nil {
		return fmt.Errorf("flush checkpoint: %w", err)
	}
	c.pending = 0
	return nil
}

// Rows returns the charted rows in insertion order
func (c *Checkpoint) Rows() []contracts.ChartedRow {
	return c.rows
}
