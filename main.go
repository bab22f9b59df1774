package main

import "hydra/cmd"

func main() {
	cmd.Execute()
}
