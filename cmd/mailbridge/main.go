package main

import "github.com/mailbridge/mailbridge/internal/cli"

func main() {
	cli.Execute()
}
