package main

import "github.com/esphen/keg/cmd"

func main() {
	cmd.Execute()
}
