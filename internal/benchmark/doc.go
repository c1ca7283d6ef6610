// SPDX-License-Identifier: MPL-2.0

// Package benchmark holds benchmarks for the install hot paths, used to
// generate PGO profiles:
//   - CUE config loading and schema validation
//   - package discovery over large module trees
//   - launcher and completion rendering
//   - completion verification in the embedded shell
//   - an end-to-end install against the fake interpreter
//
// To generate a profile, run:
//
//	go test -run=^$ -bench=. -cpuprofile=default.pgo ./internal/benchmark
package benchmark
