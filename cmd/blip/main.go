package main

import "github.com/tidepool-org/blip/cmd/blip/command"

func main() {
	command.Execute()
}
