// Package main is the netscope entry point.
package main

import (
	"github.com/netscope/netscope/cmd"
)

func main() {
	cmd.Execute()
}
