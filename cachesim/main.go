// Command cachesim runs a memory access trace through a simulated data cache
// and L2 cache and reports how every access was served.
package main

import "github.com/sarchlab/cachesim/cachesim/cmd"

func main() {
	cmd.Execute()
}
