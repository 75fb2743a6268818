package main

import (
	"github.com/alecthomas/kong"

	"github.com/foodgram/backend/internal/cmd"
)

func main() {
	ctx := kong.Parse(&cmd.CLI,
		kong.Name("foodgram"),
		kong.Description("Foodgram recipe sharing API."),
		kong.UsageOnError())
	err := ctx.Run(&cmd.Context{Debug: cmd.CLI.Debug})
	ctx.FatalIfErrorf(err)
}
