package main

import "github.com/tidepool-org/blip/api"

func main() {
	api.MainLoop()
}
