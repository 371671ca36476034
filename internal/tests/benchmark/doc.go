// Package benchmark provides performance benchmarks for RollCall.
//
// Run benchmarks with:
//
//	go test -bench=. -benchmem ./internal/tests/benchmark/...
//
// Run a single group against larger stores:
//
//	go test -bench=BenchmarkSession -benchmem -benchtime=10s ./internal/tests/benchmark/...
//
// Generate a performance report:
//
//	go test -bench=. -benchmem -count=5 ./internal/tests/benchmark/... | tee benchmark.txt
//
// Compare results:
//
//	benchstat old.txt new.txt
package benchmark
