package main

import (
	"github.com/mchmarny/relscore/pkg/cli"
)

func main() {
	cli.Execute()
}
