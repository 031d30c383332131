package main

import "github.com/oshokin/roguelike-launcher/cmd/roguelike-launcher/cmd"

func main() {
	cmd.Execute()
}
