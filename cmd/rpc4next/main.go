// Command rpc4next generates typed route structures from a route directory
// tree and resolves URLs against them.
package main

import "github.com/watanabe-1/rpc4next-sub001/cmd/rpc4next/commands"

func main() {
	commands.Execute()
}
