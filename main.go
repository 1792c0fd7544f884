package main

import "github.com/kebairia/habackup/cmd"

func main() {
	cmd.Execute()
}
