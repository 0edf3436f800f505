package main

import "github.com/oshokin/stage-loader/cmd/stage-loader/cmd"

func main() {
	cmd.Execute()
}
