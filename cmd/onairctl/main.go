// Package main provides the onair control CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/godbus/dbus/v5"
	"github.com/joho/godotenv"

	"github.com/osa030/onair/internal/infra/control"
)

var (
	app = kingpin.New("onairctl", "control client for the onair daemon")

	enable  = app.Command("enable", "Enable playback arbitration")
	disable = app.Command("disable", "Disable playback arbitration")
	status  = app.Command("status", "Show daemon status")

	setDelay   = app.Command("set-delay", "Set the resume delay")
	setDelayMs = setDelay.Arg("ms", "Resume delay in milliseconds").Required().Uint32()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	conn, err := dbus.SessionBus()
	if err != nil {
		fail("failed to connect to session bus: %v", err)
	}
	defer conn.Close()

	obj := conn.Object(control.BusName, control.ObjectPath)

	switch command {
	case enable.FullCommand():
		call(obj, "Enable")
		fmt.Println("arbitration enabled")
	case disable.FullCommand():
		call(obj, "Disable")
		fmt.Println("arbitration disabled")
	case setDelay.FullCommand():
		call(obj, "SetResumeDelayMs", *setDelayMs)
		fmt.Printf("resume delay set to %dms\n", *setDelayMs)
	case status.FullCommand():
		printStatus(obj)
	}
}

func printStatus(obj dbus.BusObject) {
	var enabled bool
	if err := obj.Call(control.Interface+".Enabled", 0).Store(&enabled); err != nil {
		fail("failed to query daemon (is onaird running?): %v", err)
	}

	var delayMs uint32
	if err := obj.Call(control.Interface+".ResumeDelayMs", 0).Store(&delayMs); err != nil {
		fail("failed to query resume delay: %v", err)
	}

	var tracked, stacked uint32
	if err := obj.Call(control.Interface+".Stats", 0).Store(&tracked, &stacked); err != nil {
		fail("failed to query stats: %v", err)
	}

	fmt.Printf("enabled:           %v\n", enabled)
	fmt.Printf("resume delay:      %dms\n", delayMs)
	fmt.Printf("tracked players:   %d\n", tracked)
	fmt.Printf("resume candidates: %d\n", stacked)
}

func call(obj dbus.BusObject, method string, args ...any) {
	if err := obj.Call(control.Interface+"."+method, 0, args...).Err; err != nil {
		fail("failed to call %s (is onaird running?): %v", method, err)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
