package main

import "github-repo-analyzer/internal/cli"

func main() {
	cli.Execute()
}
