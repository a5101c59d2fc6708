// SPDX-License-Identifier: MIT

package spec

import (
	"fmt"
	"io"

	"github.com/google/renameio/v2"

	pslog "github.com/packspec/packspec/internal/log"
)

// WriteTo serializes the document: sections in order, one assignment per
// line, a blank line between sections. Comments from the original source
// are not preserved; parsing the output yields an equivalent document.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for i, s := range d.Sections {
		if i > 0 {
			n, err := io.WriteString(w, "\n")
			total += int64(n)
			if err != nil {
				return total, err
			}
		}
		n, err := fmt.Fprintf(w, "[%s]\n", s.Name)
		total += int64(n)
		if err != nil {
			return total, err
		}
		for _, e := range s.Entries {
			var line string
			switch {
			case !e.HasValue:
				line = e.Key + "\n"
			case e.Value == "":
				line = e.Key + " =\n"
			default:
				line = e.Key + " = " + e.Value + "\n"
			}
			n, err := io.WriteString(w, line)
			total += int64(n)
			if err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

// Save writes the serialized document to path atomically: the content goes
// to a temp file that is fsynced and renamed over the target, so readers
// never observe a partial document.
func (d *Document) Save(path string) error {
	logger := pslog.WithComponent("spec")

	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending document: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger.Debug().Err(err).Str(pslog.FieldPath, path).Msg("cleanup pending document")
		}
	}()

	if _, err := d.WriteTo(pending); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace document: %w", err)
	}
	return nil
}
