// Package connection provides server access for rollcall-cli.
//
//   - http.go: JSON HTTP client, response-envelope parsing, raw
//     downloads for CSV export
//   - manager.go: saved server profiles backed by the CLI config file
//
// Server errors arrive as the API's envelope and surface to commands
// as "[RC-XXXX-NNNN] message" errors.
package connection
