package main

import "github.com/sindi-lab/session-postproc/cmd"

func main() {
	cmd.Execute()
}
