package main

import "labload/cmd"

func main() {
	cmd.Execute()
}
