// Package main is the entry point for the sqlit terminal SQL client.
package main

import (
	"github.com/the-vampiire/sqlit-sub003/cmd"
)

func main() {
	cmd.Execute()
}
