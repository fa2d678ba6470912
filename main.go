package main

import "rtmbot/cmd"

func main() {
	cmd.Execute()
}
