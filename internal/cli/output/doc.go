// Package output provides output formatting for rollcall-cli.
//
// Every command renders its result through a Formatter selected by the
// --output flag:
//
//   - formatter.go: Formatter interface and factory
//   - table.go: aligned tables with wide mode and timestamp columns
//   - json.go: indented JSON for scripting
//   - yaml.go: YAML output
//   - spinner.go: progress animation for long operations
//
// Table columns are declared on the payload structs via `table` tags,
// so the command layer never builds tables by hand for list output.
package output
