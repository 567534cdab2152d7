package main

import "github.com/bazaarhq/bazaar_backend/cmd"

func main() {
	cmd.Execute()
}
