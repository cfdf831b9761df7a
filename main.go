package main

import "github.com/machingclee/muxtcp/cmd"

func main() {
	cmd.Execute()
}
