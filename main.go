package main

import "github.com/jfmyers9/tracklist/cmd"

func main() {
	cmd.Execute()
}
