package main

import "github.com/OpenTraceLab/fabriclink/cmd/fabriclink/cmd"

func main() {
	cmd.Execute()
}
