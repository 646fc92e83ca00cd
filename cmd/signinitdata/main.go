// Command signinitdata prints a Telegram WebApp initData string signed with a
// bot token, for exercising the auth endpoint locally.
//
//	signinitdata -id 123 -first-name Ann -start-param ref_ABCD1234
//
// The bot token comes from -token, then BOT_TOKEN, then an interactive prompt.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/shreels/tgauth/internal/telegram/initdata"
)

var errNoToken = errors.New("bot token is required: pass -token or set BOT_TOKEN")

// readPassword is a seam for the terminal prompt.
var readPassword = func(fd int) ([]byte, error) {
	if !term.IsTerminal(fd) {
		return nil, errNoToken
	}
	return term.ReadPassword(fd)
}

type options struct {
	token      string
	id         int64
	firstName  string
	lastName   string
	username   string
	startParam string
	authDate   int64
	queryID    string
	check      string
}

func parseOptions(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("signinitdata", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{}
	fs.StringVar(&o.token, "token", "", "bot token (default $BOT_TOKEN)")
	fs.Int64Var(&o.id, "id", 0, "Telegram user id")
	fs.StringVar(&o.firstName, "first-name", "", "user first name")
	fs.StringVar(&o.lastName, "last-name", "", "user last name")
	fs.StringVar(&o.username, "username", "", "user name without @")
	fs.StringVar(&o.startParam, "start-param", "", "start_param, e.g. ref_ABCD1234")
	fs.Int64Var(&o.authDate, "auth-date", 0, "auth_date unix seconds (default now)")
	fs.StringVar(&o.queryID, "query-id", "", "query_id")
	fs.StringVar(&o.check, "check", "", "verify an existing initData string instead of signing")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.check == "" && o.id == 0 {
		return nil, errors.New("-id is required")
	}
	return o, nil
}

func resolveToken(o *options, stderr io.Writer) (string, error) {
	if o.token != "" {
		return o.token, nil
	}
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		return v, nil
	}

	fmt.Fprint(stderr, "Bot token: ")
	b, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(stderr)
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(string(b))
	if token == "" {
		return "", errNoToken
	}
	return token, nil
}

// build returns the signed initData for o.
func build(o *options, token string, now time.Time) (string, error) {
	user := initdata.User{ID: o.id, FirstName: o.firstName}
	if o.lastName != "" {
		user.LastName = &o.lastName
	}
	if o.username != "" {
		user.Username = &o.username
	}

	raw, err := json.Marshal(user)
	if err != nil {
		return "", err
	}

	authDate := o.authDate
	if authDate == 0 {
		authDate = now.Unix()
	}

	values := url.Values{}
	values.Set("user", string(raw))
	values.Set("auth_date", strconv.FormatInt(authDate, 10))
	if o.startParam != "" {
		values.Set("start_param", o.startParam)
	}
	if o.queryID != "" {
		values.Set("query_id", o.queryID)
	}
	values.Set("hash", initdata.Sign(values, token))

	return values.Encode(), nil
}

func run(args []string, stdout, stderr io.Writer, now time.Time) error {
	o, err := parseOptions(args, stderr)
	if err != nil {
		return err
	}

	token, err := resolveToken(o, stderr)
	if err != nil {
		return err
	}

	if o.check != "" {
		if err := initdata.Verify(o.check, token); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "ok")
		return nil
	}

	out, err := build(o, token, now)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, out)
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr, time.Now()); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "signinitdata:", err)
		os.Exit(1)
	}
}
