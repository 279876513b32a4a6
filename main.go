package main

import "github.com/brogergvhs/cbzmaker/cmd"

func main() {
	cmd.Execute()
}
