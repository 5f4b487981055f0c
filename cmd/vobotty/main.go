package main

import (
	"github.com/tanguc/vobotty/cmd/vobotty/commands"
	"github.com/tanguc/vobotty/lib/util/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
