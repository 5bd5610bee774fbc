package main

import "github.com/mvp-joe/fwscan/internal/cli"

func main() {
	cli.Execute()
}
