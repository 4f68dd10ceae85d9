// Command tracenav records, serves, and explores instruction traces of a
// simulated GPU, and reviews its register snapshots.
package main

import "github.com/sarchlab/tracenav/cmd/tracenav/cmd"

func main() {
	cmd.Execute()
}
