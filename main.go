package main

import (
	"github.com/vicomannen/winfade/cmd"

	_ "github.com/vicomannen/winfade/internal/platform/windows"
)

func main() {
	cmd.Execute()
}
