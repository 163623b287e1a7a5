package main

import "github.com/ValentinKolb/msgt/cmd"

func main() {
	cmd.Execute()
}
