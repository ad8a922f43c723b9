package main

import "github.com/kiesman99/geomap/cmd"

func main() {
	cmd.Execute()
}
