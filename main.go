package main

import "github.com/frahmantamala/conference-payments/cmd"

func main() {
	cmd.Execute()
}
