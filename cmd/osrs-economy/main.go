package main

import (
	"github.com/jakebrehm/osrs-economy/cmd/osrs-economy/cmd"
	"github.com/jakebrehm/osrs-economy/lib/serviceutil"
)

func main() {
	cmd.Execute(serviceutil.SignalContext())
}
