package main

import "aiderdesk/cmd"

func main() {
	cmd.Execute()
}
