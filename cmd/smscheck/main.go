// Command smscheck exercises the SMS gateway end to end with the configured
// account: it checks the account and balance, optionally sends one message,
// and prints each raw reply.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/mashtalsms/internal/adapter/driven/smsgateway"
	"github.com/ericfisherdev/mashtalsms/internal/config"
	"github.com/ericfisherdev/mashtalsms/internal/domain/model"
	"github.com/ericfisherdev/mashtalsms/internal/domain/reply"
)

// Exit codes.
const (
	exitOK        = 0
	exitTransport = 1
	exitUsage     = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("smscheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	to := fs.String("to", "", "recipient for a test message (requires -message)")
	message := fs.String("message", "", "test message body (requires -to)")
	parsed := fs.Bool("parsed", false, "also print a parsed reading of each reply")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if (*to == "") != (*message == "") {
		fmt.Fprintln(stderr, "Error: -to and -message must be given together")
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	creds := cfg.BootstrapCredentials()
	if creds.IsZero() {
		fmt.Fprintln(stderr, "Error: MASHTAL_SMS_USERNAME and MASHTAL_SMS_SECRET_KEY are required")
		return exitUsage
	}

	client, err := smsgateway.NewClient(cfg.SMSEndpoint, smsgateway.Paths{
		Account: cfg.SMSAccountPath,
		Balance: cfg.SMSBalancePath,
		Send:    cfg.SMSSendPath,
	}, cfg.SMSTimeout)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	reqs := []model.NotificationRequest{
		{Operation: model.OperationCheckAccount},
		{Operation: model.OperationCheckBalance},
	}
	if *to != "" {
		reqs = append(reqs, model.NotificationRequest{
			Operation: model.OperationSendMessage,
			Recipient: *to,
			Body:      *message,
		})
	}

	code := exitOK
	for _, req := range reqs {
		resp, err := client.Do(ctx, creds, req)
		if err != nil {
			var terr *smsgateway.TransportError
			if errors.As(err, &terr) {
				code = exitTransport
			} else {
				code = exitUsage
			}
			fmt.Fprintf(stderr, "%s: %v\n", req.Operation, err)
			continue
		}

		fmt.Fprintf(stdout, "%s [%d]: %s\n", req.Operation, resp.StatusCode, resp.Body)
		if *parsed {
			r := reply.Parse(resp.Body)
			fmt.Fprintf(stdout, "  format=%s code=%q message=%q balance=%q\n", r.Format, r.Code, r.Message, r.Balance)
		}
	}

	return code
}
