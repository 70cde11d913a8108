// Package pulsar provides a high-throughput delimited-text parsing engine.
//
// Pulsar parses row/column-structured byte buffers into a packed binary tape:
// two 64-bit cells per field, one describing the raw bytes (offset, length,
// missing flag) and one holding the decoded value under the column's inferred
// type. Column types are inferred online, field by field, and widened through
// a fixed promotion lattice (undetermined -> integer -> float -> string) when
// new evidence contradicts the current decision.
//
// The engine splits large inputs into independently parseable chunks so that
// multiple workers can parse concurrently. Chunk boundaries are discovered
// with a quote-aware scan that guarantees every boundary lands on a row start,
// never inside an open quoted field.
//
// Key packages:
//
//   - pkg/tape: the packed tape representation and the type-code lattice
//   - pkg/floatconv: exact decimal-to-binary float conversion
//   - pkg/pool: zero-copy string interning (reference pooling)
//   - pkg/parser: field encoding, type inference, chunk planning, the engine
//   - internal/pipeline: the parallel chunk driver
//   - pkg/input: buffer loading (plain, mmap, compressed)
//
// The engine consumes a fully materialized byte buffer and produces a tape
// plus per-column type codes; turning the tape into an in-memory table is the
// caller's concern.
package pulsar
