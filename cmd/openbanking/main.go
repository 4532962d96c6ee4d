package main

import "openbankingbr/cmd/openbanking/cmd"

func main() {
	cmd.Execute()
}
