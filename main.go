package main

import "github.com/kozaktomas/product-matcher/cmd"

func main() {
	cmd.Execute()
}
