package main

import "halya/internal/cli"

func main() {
	cli.Main()
}
