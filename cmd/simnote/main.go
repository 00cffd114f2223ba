// Command simnote is the command-line surface over the journal core:
// entry CRUD, mood tracking, snapshot exchange and the passcode
// security engine, all against a local data directory.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
