package main

import "github.com/oshokin/stager/cmd/stager/cmd"

func main() {
	cmd.Execute()
}
