// Command flowchat generates conversational workflows and serves chat agents.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		fatal(err)
		os.Exit(1)
	}
}
