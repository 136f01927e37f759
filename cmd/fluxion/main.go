package main

import "github.com/mvp-joe/fluxion/internal/cli"

func main() {
	cli.Execute()
}
