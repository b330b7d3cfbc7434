package main

import (
	"github.com/bobuk/clistcal/cmd"
)

// version will be set during build
var version = "dev"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}
