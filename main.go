package main

import (
	"github.com/wrenflow/ticketeer/cmd"
)

func main() {
	cmd.Execute()
}
