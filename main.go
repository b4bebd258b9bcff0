package main

import "github.com/homemade/capture2sailthru/cmd"

func main() {
	cmd.Execute()
}
