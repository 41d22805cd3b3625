package main

import "github.com/pitchside/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
