// Package daybook is the Composition Root for the daybook journal.
//
// A journal keeps one free-text entry per calendar date, stored as one record
// per date. This package wires the storage adapter (pkg/adapters/fs by
// default, or pkg/adapters/sqlite), the background executor (pkg/dispatch),
// the observable projection (pkg/cache) and the autosave policies
// (pkg/autosave) behind a single Journal type.
//
// Guarantees:
//
//   - Writes are atomic: a record is replaced in one visible step, and the rare
//     fallback to an in-place overwrite is reported as DurabilityDegraded.
//   - Blank content is the same as no entry; saving it deletes the record.
//   - Operations on one date apply in the order they were issued; storage work
//     never runs on the caller's goroutine.
//   - Closing an editing session always saves what was typed.
//
// Usage:
//
//	j, err := daybook.Open("./journal", daybook.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer j.Close(ctx)
//
//	s, err := j.OpenSession(ctx, j.Today())
//	...
//	s.Mutate(ctx, "Dear diary")
//	s.Close(ctx) // flushes
package daybook
