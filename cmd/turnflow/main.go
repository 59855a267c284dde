// turnflow attaches optional safety, retrieval, and persistence capabilities
// to a streaming conversational model and serves it over HTTP or a local
// REPL.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
