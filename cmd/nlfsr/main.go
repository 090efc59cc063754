package main

import "github.com/OpenTraceLab/OpenTraceNLFSR/cmd/nlfsr/cmd"

func main() {
	cmd.Execute()
}
