package main

import "github.com/ilmiyplatform/ms-go-billing/cmd"

func main() {
	cmd.Execute()
}
