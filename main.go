package main

import "github.com/carenet/identity-service/cmd"

func main() {
	cmd.Execute()
}
