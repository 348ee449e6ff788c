package main

import "supportscraper/cmd"

func main() {
	cmd.Execute()
}
