package main

import (
	"github.com/els0r/geoherd/cmd/geoherdctl/cmd"
)

func main() {
	cmd.Execute()
}
