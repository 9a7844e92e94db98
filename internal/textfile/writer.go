// Package textfile commits metrics snapshots to a node exporter textfile
// collector destination.
package textfile

import (
	"github.com/prometheus/client_golang/prometheus"

	pmerrors "github.com/gxo-labs/playmetrics/pkg/playmetrics/v1/errors"
)

// Snapshotter serializes the current state of a metrics registry and commits
// it to a destination. The collector invokes it exactly once, at run end.
type Snapshotter interface {
	Write(gatherer prometheus.Gatherer) error
}

// Writer writes the exposition text format to a file, atomically from the
// consumer's point of view: the snapshot is written to a temporary file in
// the same directory and renamed into place, so a partially written file is
// never observable.
type Writer struct {
	// Path is the destination file, e.g.
	// /var/lib/prometheus/node_exporter/ansible.prom.
	Path string
}

// NewWriter creates a Writer for the given destination path.
func NewWriter(path string) *Writer {
	return &Writer{Path: path}
}

// Write gathers all metric families from the registry and commits them to
// the destination. Any I/O failure is wrapped in a WriteError and returned
// to the caller; it is never retried here.
func (w *Writer) Write(gatherer prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(w.Path, gatherer); err != nil {
		return pmerrors.NewWriteError(w.Path, err)
	}
	return nil
}

var _ Snapshotter = (*Writer)(nil)
