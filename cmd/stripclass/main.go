package main

import "github.com/stripclass/cmd/stripclass/cmd"

func main() {
	cmd.Execute()
}
