package main

import (
	"video-vault/cmd"
)

func main() {
	cmd.Execute()
}
