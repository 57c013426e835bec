// minigraph resolves taps on a compact dependency graph card into
// navigation targets.
//
// Usage:
//
//	minigraph tui                               interactive card
//	minigraph resolve service/bookinfo/reviews  resolve one tap
//	minigraph full-graph | node-graph           print graph targets
//	minigraph graph [--watch]                   print collected elements
//	minigraph host                              reference host frame
//	minigraph serve                             HTTP API and host hub
package main

import "gitlab.com/tinyland/lab/minigraph/cmd"

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	cmd.SetVersion(version + " (" + commit + ")")
	cmd.Execute()
}
