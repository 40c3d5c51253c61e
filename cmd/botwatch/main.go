package main

import "botwatch/internal/cli"

func main() {
	cli.Execute()
}
