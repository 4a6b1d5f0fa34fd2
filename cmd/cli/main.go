package main

import "github.com/circuit-mixer/cmd/cli/cmd"

func main() {
	cmd.Execute()
}
