package main

import "github.com/avelychko/rolodex/cmd"

func main() {
	cmd.Execute()
}
