package main

import "github.com/devrick225/partenairemagb-payments/cmd"

func main() {
	cmd.Execute()
}
