package main

import "github.com/Mohsinsiddi/vaultctl/cmd"

func main() {
	cmd.Execute()
}
