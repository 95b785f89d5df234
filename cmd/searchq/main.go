// searchq compiles search requests into the engine body or the relational
// statements that the API would execute, without contacting any backend.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
