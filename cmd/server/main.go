package main

import "github.com/Brownie44l1/attack-lab/internal/cli"

func main() {
	cli.Execute()
}
