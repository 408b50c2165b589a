package main

import "github.com/vuxmai/budgetwatch/internal/cli"

func main() {
	cli.Execute()
}
