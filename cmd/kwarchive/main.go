// Package main provides the entry point for the kwarchive CLI.
//
// kwarchive searches paginated web sources for a keyword and archives
// every result article as a self-contained document.
//
// Usage:
//
//	kwarchive crawl <keyword>
//	kwarchive crawl --source pbc -o ./archive <keyword>
//	kwarchive summary <run-dir>
//
// See --help for all available options.
package main

// main is the entry point for kwarchive.
func main() {
	Execute()
}
