package main

import "github.com/jwulff/subplay/internal/cli"

func main() {
	cli.Main()
}
