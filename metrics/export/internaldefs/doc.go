// Package internaldefs holds the metric names, help strings and bucket bounds
// shared by the exporters, so every exporter publishes the same series.
//
// # What this package must NOT do
//
//   - Import any exporter package.
//   - Perform I/O.
package internaldefs
