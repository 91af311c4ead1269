package main

import cmd "github.com/TheApexWu/lacuna/cmd/lacuna"

func main() {
	cmd.Execute()
}
