package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/Lolalalalo-o/autocombat/internal/journal"
	"github.com/Lolalalalo-o/autocombat/pkg/command"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) < 1 {
		printHelp(out)
		return nil
	}

	switch args[0] {
	case "list":
		if len(args) < 2 {
			return fmt.Errorf("usage: journaldump list <file> [account]")
		}
		entries, err := journal.ReadFile(args[1])
		if err != nil {
			return err
		}
		for _, e := range entries {
			if len(args) > 2 && e.Account != args[2] {
				continue
			}
			fmt.Fprintf(out, "%s  %-12s %-20s %s\n",
				time.UnixMilli(e.Timestamp).UTC().Format(time.RFC3339), e.Account, e.Token, command.Decode(e.Token))
		}
	case "last":
		if len(args) < 3 {
			return fmt.Errorf("usage: journaldump last <file> <account>")
		}
		entries, err := journal.ReadFile(args[1])
		if err != nil {
			return err
		}
		var (
			last  uint64
			found bool
		)
		for _, e := range entries {
			if e.Account != args[2] {
				continue
			}
			if n := command.Decode(e.Token).Nonce; !found || n > last {
				last, found = n, true
			}
		}
		if !found {
			return fmt.Errorf("no commands for account %q", args[2])
		}
		fmt.Fprintln(out, last)
	case "format":
		if len(args) < 2 {
			return fmt.Errorf("usage: journaldump format <unix_ms>")
		}
		ms, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid timestamp: %w", err)
		}
		fmt.Fprintln(out, time.UnixMilli(ms).UTC().Format(time.RFC3339))
	default:
		printHelp(out)
	}
	return nil
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, `Journal dump - просмотр журнала отправленных команд
Commands:
  list <file> [account]  - все записи (время, аккаунт, токен, поля)
  last <file> <account>  - последний использованный nonce аккаунта
  format <unix_ms>       - преобразовать время записи в читаемый формат`)
}
