package main

import "github.com/ridoystarlord/pgblueprint/cmd"

func main() {
	cmd.Execute()
}
