package main

import "github.com/KaramelBytes/aircheck-cli/cmd"

func main() {
	cmd.Execute()
}
