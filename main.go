package main

import "github.com/kozaktomas/argus/cmd"

func main() {
	cmd.Execute()
}
