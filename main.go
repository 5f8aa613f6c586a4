package main

import "github.com/quantfade/longshot/cmd"

func main() {
	cmd.Execute()
}
