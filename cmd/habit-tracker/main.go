package main

import "github.com/smith3v/tg-habit-tracker/pkg/cli"

func main() {
	cli.Execute()
}
