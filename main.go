package main

import "github.com/kebairia/appbackup/cmd"

func main() {
	cmd.Execute()
}
