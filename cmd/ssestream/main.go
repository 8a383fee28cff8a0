package main

import "github.com/hatsunemiku3939/ssestream/cmd/ssestream/cmd"

func main() {
	cmd.Execute()
}
