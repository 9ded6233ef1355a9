package main

import "github.com/jtoza/school-sync-pro/cmd/client/cmd"

func main() {
	cmd.Execute()
}
