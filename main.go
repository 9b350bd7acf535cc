package main

import "github.com/naka-gawa/repo-history/cmd"

func main() {
	cmd.Execute()
}
