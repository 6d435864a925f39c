package main

import "godlearn/internal/cli"

func main() {
	cli.Execute()
}
