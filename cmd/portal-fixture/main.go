// Package main provides the entry point for the fixture portal.
//
// The fixture portal serves the knowledge-graph portal's search and node pages
// with the test-ids and URLs the end-to-end page objects expect.
//
// Usage:
//
//	portal-fixture serve --addr :9000
//	portal-fixture generate --count 1000 -o nodes.tsv
//
// See --help for all available options.
package main

func main() {
	Execute()
}
