package main

import "github.com/voxbridge/customer-portal/cmd/portal/cmd"

func main() {
	cmd.Execute()
}
