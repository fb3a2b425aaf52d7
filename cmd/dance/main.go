// Dance - raspbot dance demo with lights and beeps
//
// Makes the robot perform a short dance routine: wheel wiggles, a
// light show, camera gimbal nods, and a full groove at the end.
package main

import (
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-raspbot/internal/config"
	"github.com/teslashibe/go-raspbot/pkg/raspbot"
)

var bridgeHost = config.BridgeHost("localhost")

func main() {
	fmt.Println("💃 Raspbot Dance Demo")
	fmt.Println("=====================")
	fmt.Printf("Bridge: %s\n\n", bridgeHost)

	bot := raspbot.NewHTTPBridge(bridgeHost)

	// Handle Ctrl+C gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\n👋 Stopping dance, resetting...")
		bot.Stop()
		bot.Off()
		bot.SetServo(1, 90)
		time.Sleep(500 * time.Millisecond)
		os.Exit(0)
	}()

	fmt.Print("Checking connection... ")
	if err := bot.Ping(); err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✅")

	fmt.Println("\n🎵 Let's dance! (Ctrl+C to stop)")

	danceRoutine(bot)
}

var palette = []raspbot.Color{
	raspbot.ColorRed,
	raspbot.ColorYellow,
	raspbot.ColorGreen,
	raspbot.ColorCyan,
	raspbot.ColorBlue,
	raspbot.ColorPurple,
}

// danceRoutine performs a fun dance!
func danceRoutine(bot *raspbot.HTTPBridge) {
	startTime := time.Now()
	frameRate := 50 * time.Millisecond

	moves := []string{
		"🎵 Wheel wiggle...",
		"🎵 Light show...",
		"🎵 Camera nod...",
		"🎵 Full groove...",
	}
	moveIndex := 0
	lastColor := -1
	var lastBeep time.Time

	for {
		t := time.Since(startTime).Seconds()

		// Change move every 4 seconds
		newMoveIndex := int(t/4) % len(moves)
		if newMoveIndex != moveIndex {
			moveIndex = newMoveIndex
			fmt.Printf("\r%s          ", moves[moveIndex])
			bot.Stop()
		}

		var err error
		switch moveIndex {
		case 0: // Wheel wiggle: rock the chassis in place
			err = bot.Drive(0, 0, math.Sin(t*4), 30)

		case 1: // Light show: walk the palette while spinning slowly
			color := int(t*3) % len(palette)
			if color != lastColor {
				lastColor = color
				bot.SetAll(palette[color])
			}
			err = bot.Drive(0, 0, 0.4, 15)

		case 2: // Camera nod: sweep the gimbal, wheels resting
			angle := 90 + int(35*math.Sin(t*3))
			err = bot.SetServo(1, angle)

		case 3: // Full groove: everything at once, with a beat
			color := int(t*5) % len(palette)
			if color != lastColor {
				lastColor = color
				bot.SetAll(palette[color])
			}
			bot.SetServo(1, 90+int(25*math.Sin(t*4)))
			if time.Since(lastBeep) > time.Second {
				lastBeep = time.Now()
				bot.Beep(60 * time.Millisecond)
			}
			err = bot.Drive(0, 0, 0.6*math.Sin(t*2), 25)
		}

		if err != nil {
			fmt.Printf("\rError: %v", err)
		}

		time.Sleep(frameRate)
	}
}
