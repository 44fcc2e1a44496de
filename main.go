package main

import "github.com/abhivaikar/seed-static-site/cmd"

func main() {
	cmd.Execute()
}
