package main

import "facility-access-control/cmd"

func main() {
	cmd.Execute()
}
