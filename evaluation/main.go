package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"crypto/tls"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
)

// Constants

const testMail = "From: John Doe <jdoe@machine.example>\r\n" +
	"To: Mary Smith <mary@example.net>\r\n" +
	"Subject: Saying Hello\r\n" +
	"Date: Fri, 21 Nov 1814 09:55:06 -0600\r\n" +
	"Message-ID: <1234@local.machine.example>\r\n\r\n" +
	"yolo\r\n"

// Structs

type options struct {
	addr     string
	user     string
	password string
	mailbox  string
	useTLS   bool
	insecure bool
	messages int
}

// Functions

func dial(opts options) (*imapclient.Client, error) {

	if !opts.useTLS {
		return imapclient.DialInsecure(opts.addr, nil)
	}

	return imapclient.DialTLS(opts.addr, &imapclient.Options{
		TLSConfig: &tls.Config{
			InsecureSkipVerify: opts.insecure,
		},
	})
}

// run logs in, appends opts.messages copies of the test
// mail and reports the duration of each APPEND to out.
func run(logger log.Logger, opts options, out io.Writer) ([]time.Duration, error) {

	c, err := dial(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", opts.addr)
	}
	defer c.Close()

	if err := c.Login(opts.user, opts.password).Wait(); err != nil {
		return nil, errors.Wrap(err, "login failed")
	}

	level.Info(logger).Log("msg", "logged in", "user", opts.user)

	date := time.Date(2009, time.November, 10, 23, 0, 0, 0, time.UTC)
	durations := make([]time.Duration, 0, opts.messages)

	for i := 0; i < opts.messages; i++ {

		t1 := time.Now()

		cmd := c.Append(opts.mailbox, int64(len(testMail)), &imap.AppendOptions{
			Flags: []imap.Flag{imap.FlagDraft},
			Time:  date,
		})

		if _, err := io.WriteString(cmd, testMail); err != nil {
			return durations, errors.Wrapf(err, "failed to send message %d", i)
		}

		if err := cmd.Close(); err != nil {
			return durations, errors.Wrapf(err, "failed to finish message %d", i)
		}

		if _, err := cmd.Wait(); err != nil {
			return durations, errors.Wrapf(err, "APPEND of message %d failed", i)
		}

		diff := time.Since(t1)
		durations = append(durations, diff)

		if _, err := fmt.Fprintf(out, "%d, %s\r\n", i, diff); err != nil {
			return durations, errors.Wrap(err, "failed to write result")
		}
	}

	if err := c.Logout().Wait(); err != nil {
		level.Warn(logger).Log("msg", "logout failed", "err", err)
	}

	return durations, nil
}

func main() {

	host := flag.String("host", "127.0.0.1", "Declare to which domain or IP to connect to for sending IMAP traffic.")
	port := flag.Int("port", 993, "Declare to which port to connect to for sending IMAP traffic.")
	useTLS := flag.Bool("tls", true, "Set to true if remote host allows for TLS encrypted connections.")
	insecure := flag.Bool("insecure", false, "Skip verification of the server certificate.")
	user := flag.String("user", "", "Name of the user to log in as (required).")
	password := flag.String("pass", "", "Password of that user (required).")
	mailbox := flag.String("mailbox", "INBOX", "Mailbox to append to.")
	messages := flag.Int("messages", 100, "Number of messages to append.")
	output := flag.String("output", "", "File to append the measurements to, stdout if empty.")
	flag.Parse()

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)

	if *user == "" || *password == "" {
		level.Error(logger).Log("msg", "not enough arguments, try -h")
		os.Exit(1)
	}

	out := io.Writer(os.Stdout)

	if *output != "" {

		f, err := os.OpenFile(*output, (os.O_CREATE | os.O_APPEND | os.O_WRONLY), 0600)
		if err != nil {
			level.Error(logger).Log("msg", "failed to open output file", "err", err)
			os.Exit(1)
		}
		defer f.Close()

		out = f
	}

	durations, err := run(logger, options{
		addr:     fmt.Sprintf("%s:%d", *host, *port),
		user:     *user,
		password: *password,
		mailbox:  *mailbox,
		useTLS:   *useTLS,
		insecure: *insecure,
		messages: *messages,
	}, out)

	s := summarize(durations)
	level.Info(logger).Log("msg", "done", "count", s.Count, "min", s.Min, "mean", s.Mean, "p50", s.P50, "p90", s.P90, "max", s.Max)

	if err != nil {
		level.Error(logger).Log("msg", "evaluation aborted", "err", err)
		os.Exit(2)
	}
}
