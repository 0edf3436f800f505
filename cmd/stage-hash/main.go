package main

import "github.com/oshokin/stage-loader/cmd/stage-hash/cmd"

func main() {
	cmd.Execute()
}
