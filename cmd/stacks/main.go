package main

import (
	"os"

	"github.com/alecthomas/kong"
)

type Globals struct {
	Config  string `help:"Path to config file. Built-in defaults are used when empty." name:"config" short:"c" type:"path"`
	Network string `help:"Override the configured network (mainnet, testnet, devnet)." name:"network"`
	Debug   bool   `help:"Enable debug logs." name:"debug"`
}

type CLI struct {
	Globals

	Exec      ExecCmd      `cmd:"" help:"Run one resource operation."`
	Encode    EncodeCmd    `cmd:"" help:"Encode a value as Clarity hex."`
	Decode    DecodeCmd    `cmd:"" help:"Decode Clarity hex."`
	Trigger   TriggerCmd   `cmd:"" help:"Poll for new chain activity."`
	Listen    ListenCmd    `cmd:"" help:"Print trigger events published to NATS."`
	State     StateCmd     `cmd:"" help:"Inspect saved trigger state."`
	Resources ResourcesCmd `cmd:"" help:"List resources and operations."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("stacks"),
		kong.Description("Stacks and Bitcoin query connector with a Clarity value codec."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli.Globals, &output{w: os.Stdout})
	ctx.FatalIfErrorf(err)
}
