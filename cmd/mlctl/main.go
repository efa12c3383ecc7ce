// Command mlctl is a dev CLI for marketlink maintenance and debugging
// tasks.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/pkg/browser"
	"github.com/rs/zerolog"

	"github.com/akozyrev/marketlink/internal/automation"
	browseropts "github.com/akozyrev/marketlink/internal/browser"
	"github.com/akozyrev/marketlink/internal/config"
	"github.com/akozyrev/marketlink/internal/types"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "bot-test":
		runBotTest()
	case "open":
		if len(os.Args) < 3 {
			fmt.Println("Usage: mlctl open config")
			os.Exit(1)
		}
		runOpen(os.Args[2])
	case "login":
		if len(os.Args) < 4 {
			fmt.Println("Usage: mlctl login <wildberries|ozon> <phone-or-email>")
			os.Exit(1)
		}
		runLogin(os.Args[2], os.Args[3])
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: mlctl <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  bot-test                       Open bot.sannysoft.com to audit browser fingerprint")
	fmt.Println("  open config                    Open config file in default editor")
	fmt.Println("  login <marketplace> <id>       Run the login flow interactively")
}

func runBotTest() {
	fmt.Println("Opening bot.sannysoft.com with stealth browser options...")

	opts := browseropts.Options(false, "") // non-headless so you can see it

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancel()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	go func() {
		if err := chromedp.Run(ctx, chromedp.Navigate("https://bot.sannysoft.com")); err != nil {
			fmt.Printf("Failed to navigate: %v\n", err)
		}
	}()

	fmt.Println("Press Enter to end program...")
	fmt.Scanln()
}

func runOpen(target string) {
	if target != "config" {
		fmt.Printf("Unknown open target: %s\n", target)
		os.Exit(1)
	}
	path, err := config.ConfigPath()
	if err != nil {
		fmt.Printf("Failed to resolve config path: %v\n", err)
		os.Exit(1)
	}
	if err := browser.OpenFile(path); err != nil {
		fmt.Printf("Failed to open %s: %v\n", path, err)
		os.Exit(1)
	}
}

// runLogin drives the marketplace login flow from the terminal, useful for
// checking the selector catalogs against the live site.
func runLogin(marketplace, identifier string) {
	m, err := types.ParseMarketplace(marketplace)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg := automation.DefaultConfig()
	cfg.Headless = false // watch the flow

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	drivers := automation.NewFactory(cfg, logger)
	driver, err := drivers(ctx, m)
	if err != nil {
		fmt.Printf("Failed to launch browser: %v\n", err)
		os.Exit(1)
	}
	defer driver.Close()

	if err := driver.StartLogin(ctx, identifier); err != nil {
		fmt.Printf("Login start failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Print("Verification code: ")
	reader := bufio.NewReader(os.Stdin)
	code, err := reader.ReadString('\n')
	if err != nil {
		fmt.Printf("Failed to read code: %v\n", err)
		os.Exit(1)
	}

	if err := driver.SubmitCode(ctx, strings.TrimSpace(code)); err != nil {
		fmt.Printf("Code verification failed: %v\n", err)
		os.Exit(1)
	}

	cookies, err := driver.ExportCookies()
	if err != nil {
		fmt.Printf("Cookie export failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Login confirmed, %d cookies in jar\n", len(cookies))
}
