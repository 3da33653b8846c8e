package main

import "github.com/kestrel-trading/xvenue-arb/cmd"

func main() {
	cmd.Execute()
}
