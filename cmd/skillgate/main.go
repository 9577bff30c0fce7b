package main

import "github.com/ppiankov/skillgate/internal/cli"

func main() {
	cli.Execute()
}
