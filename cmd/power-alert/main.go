package main

import "github.com/oshokin/power-alert/cmd/power-alert/cmd"

func main() {
	cmd.Execute()
}
