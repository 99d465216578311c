package main

import "github.com/quickkly/tidyhttp/cmd"

func main() {
	cmd.Execute()
}
