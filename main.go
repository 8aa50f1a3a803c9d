package main

import "github.com/Alijeyrad/assessflow/cmd"

func main() {
	cmd.Execute()
}
