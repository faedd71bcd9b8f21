package main

import "github.com/assetnote/kitehttp/cmd/kitehttp/cmd"

func main() {
	cmd.Execute()
}
