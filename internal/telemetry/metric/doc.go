// Package metric exposes RollCall's Prometheus metrics.
//
// All metrics live under the rollcall namespace on a dedicated
// registry: session lifecycle counters, token validation and
// attendance outcomes, HTTP request counts and latencies, and live
// storage counts collected at scrape time. Handler serves the registry
// in the Prometheus exposition format.
package metric
