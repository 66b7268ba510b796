// Command scanner is a door-side tool: it checks in ticket ids given as
// arguments, or one per line on stdin.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/farellandr/ticketgate/internal/scanclient"
)

type config struct {
	APIURL    string    `env:"SCANNER_API_URL" envDefault:"http://localhost:8080"`
	Token     string    `env:"SCANNER_TOKEN,notEmpty"`
	// Optional. When set it must match the token's user.
	ScannerID uuid.UUID `env:"SCANNER_ID"`
	MaxTries  uint      `env:"SCANNER_MAX_TRIES" envDefault:"5"`
}

func main() {
	preview := flag.Bool("preview", false, "show tickets without checking them in")
	flag.Parse()

	_ = godotenv.Load(".env")
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client, err := newClient(cfg, logger)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	failed := 0
	for ticketID := range ticketIDs(flag.Args(), os.Stdin) {
		if ctx.Err() != nil {
			break
		}
		var line string
		if *preview {
			line = previewLine(ctx, client, ticketID)
		} else {
			var ok bool
			line, ok = checkinLine(ctx, client, ticketID)
			if !ok {
				failed++
			}
		}
		fmt.Println(line)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// newClient takes the scanner identity from the token so recovery after a
// dropped response recognises this device's own redemptions.
func newClient(cfg config, logger *slog.Logger) (*scanclient.Client, error) {
	client, err := scanclient.NewFromToken(cfg.APIURL, cfg.Token,
		scanclient.WithMaxTries(cfg.MaxTries),
		scanclient.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("SCANNER_TOKEN: %w", err)
	}
	if cfg.ScannerID != uuid.Nil && cfg.ScannerID != client.ScannerID() {
		return nil, fmt.Errorf("SCANNER_ID %s does not match token user %s", cfg.ScannerID, client.ScannerID())
	}
	return client, nil
}

func ticketIDs(args []string, stdin io.Reader) func(yield func(string) bool) {
	return func(yield func(string) bool) {
		if len(args) > 0 {
			for _, id := range args {
				if !yield(id) {
					return
				}
			}
			return
		}
		scanner := bufio.NewScanner(stdin)
		for scanner.Scan() {
			id := strings.TrimSpace(scanner.Text())
			if id == "" {
				continue
			}
			if !yield(id) {
				return
			}
		}
	}
}

func checkinLine(ctx context.Context, client *scanclient.Client, ticketID string) (string, bool) {
	_, err := client.Checkin(ctx, ticketID)
	var already *scanclient.AlreadyRedeemedError
	switch {
	case err == nil:
		return ticketID + "\tADMIT", true
	case errors.As(err, &already):
		by := "unknown scanner"
		if already.ScannedBy != nil {
			by = already.ScannedBy.String()
		}
		return fmt.Sprintf("%s\tREJECT already used at %s by %s", ticketID, already.ScannedAt.Format("15:04:05"), by), false
	case errors.Is(err, scanclient.ErrNotFound):
		return ticketID + "\tREJECT invalid ticket", false
	case errors.Is(err, scanclient.ErrNotRedeemable):
		return ticketID + "\tREJECT " + err.Error(), false
	default:
		return ticketID + "\tERROR " + err.Error(), false
	}
}

func previewLine(ctx context.Context, client *scanclient.Client, ticketID string) string {
	p, err := client.Preview(ctx, ticketID)
	if err != nil {
		return ticketID + "\tERROR " + err.Error()
	}
	return fmt.Sprintf("%s\t%s\t%s\t%s", ticketID, p.Verdict, p.HolderName, p.EventTitle)
}
