package main

import "lrc-translator/internal/cli"

func main() {
	cli.Execute()
}
