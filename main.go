package main

import "github.com/fleetware/hub/cmd"

func main() {
	cmd.Execute()
}
