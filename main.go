// Package main is the entry point for the sqlchat CLI.
package main

import (
	"sqlchat/cli/cmd"
)

func main() {
	cmd.Execute()
}
