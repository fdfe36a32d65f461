// Command ptsim simulates a paged virtual memory driven by a command line.
package main

import "github.com/sarchlab/ptsim/ptsim/cmd"

func main() {
	cmd.Execute()
}
