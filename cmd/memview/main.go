package main

import "github.com/cbout22/memview/internal/cli"

func main() {
	cli.Execute()
}
