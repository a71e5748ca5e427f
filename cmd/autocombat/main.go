package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Lolalalalo-o/autocombat/internal/auth"
	"github.com/Lolalalalo-o/autocombat/internal/config"
	"github.com/Lolalalalo-o/autocombat/internal/journal"
	"github.com/Lolalalalo-o/autocombat/internal/rpc"
	"github.com/Lolalalalo-o/autocombat/internal/session"
	"github.com/Lolalalalo-o/autocombat/internal/version"
	"github.com/Lolalalalo-o/autocombat/pkg/api"
	"github.com/Lolalalalo-o/autocombat/pkg/command"
	"github.com/Lolalalalo-o/autocombat/pkg/logger"
)

const usage = `usage: autocombat [-config file] [-endpoint url] [-account id] [-journal file] <command> [args]

commands:
  state                         print player, monsters, towers and service config
  config                        print service config
  send -op NAME [-feature N] [-nonce N]
                                encode and submit a command
  encode -nonce N -op NAME [-feature N]
                                print the command token
  decode TOKEN                  print the fields of a token
  watch                         stream state updates
`

func init() {
	logger.Init()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		logger.Log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

// globalFlags - общие флаги до имени команды
type globalFlags struct {
	configPath string
	endpoint   string
	account    string
	journal    string
}

func run(ctx context.Context, args []string, out io.Writer) error {
	var g globalFlags
	fs := flag.NewFlagSet("autocombat", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() { fmt.Fprint(out, usage) }
	fs.StringVar(&g.configPath, "config", "", "Path to YAML config (default $"+config.EnvConfigPath+")")
	fs.StringVar(&g.endpoint, "endpoint", "", "RPC endpoint, overrides config")
	fs.StringVar(&g.account, "account", "", "Account handle, overrides config")
	fs.StringVar(&g.journal, "journal", "", "Command journal file, overrides config")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return flag.ErrHelp
	}
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	// Чисто локальные команды - без конфига и сети
	switch cmd {
	case "encode":
		return runEncode(rest, out)
	case "decode":
		return runDecode(rest, out)
	case "version":
		fmt.Fprintln(out, version.String())
		return nil
	}

	cfg, err := config.Load(g.configPath)
	if err != nil {
		return err
	}
	if g.endpoint != "" {
		cfg.RPC.Endpoint = g.endpoint
	}
	if g.account != "" {
		cfg.Account.Handle = g.account
	}
	if g.journal != "" {
		cfg.Journal.Path = g.journal
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	issuer, err := auth.NewIssuer(cfg.Account.Secret, cfg.TokenTTL())
	if err != nil {
		return err
	}
	client := rpc.NewClient(cfg.RPC.Endpoint, issuer, rpc.WithTimeout(cfg.Timeout()))

	var opts []session.Option
	if cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer j.Close()
		opts = append(opts, session.WithJournal(j))
	}

	sess, err := session.New(cfg.Account.Handle, client, opts...)
	if err != nil {
		return err
	}

	logger.Log.WithField("endpoint", client.BaseURL()).Debug(version.String())

	switch cmd {
	case "state":
		return runState(ctx, sess, out)
	case "config":
		return runConfig(ctx, sess, out)
	case "send":
		return runSend(ctx, sess, rest, out)
	case "watch":
		return client.Watch(ctx, sess.Account(), func(u api.StateUpdate) {
			_ = json.NewEncoder(out).Encode(u)
		})
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runState(ctx context.Context, sess *session.Session, out io.Writer) error {
	st, err := sess.State(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "player info:")
	if err := printJSON(out, st.Player); err != nil {
		return err
	}
	fmt.Fprintln(out, "monsters info:")
	if err := printJSON(out, st.Global.Monsters); err != nil {
		return err
	}
	fmt.Fprintln(out, "towers info:")
	if err := printJSON(out, st.Global.Towers); err != nil {
		return err
	}

	return runConfig(ctx, sess, out)
}

func runConfig(ctx context.Context, sess *session.Session, out io.Writer) error {
	doc, err := sess.Config(ctx)
	if err != nil {
		return err
	}
	fmt.Fprint(out, "config ")
	return printJSON(out, doc)
}

func runSend(ctx context.Context, sess *session.Session, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(out)
	opName := fs.String("op", "", "Opcode name or number")
	feature := fs.Int64("feature", 0, "Feature selector (40 bits)")
	nonce := fs.Int64("nonce", 0, "Explicit nonce (default: next from session)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	explicitNonce := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "nonce" {
			explicitNonce = true
		}
	})
	if *opName == "" {
		return fmt.Errorf("send: -op is required")
	}

	op, err := command.ParseOpcode(*opName)
	if err != nil {
		return err
	}
	if op.IsAmbiguous() {
		fmt.Fprintf(out, "warning: opcode %d is shared by %s\n", uint8(op), strings.Join(op.Names(), ", "))
	}

	var receipt *session.Receipt
	if explicitNonce {
		tok, err := command.EncodeInt(*nonce, int64(op), *feature)
		if err != nil {
			return err
		}
		receipt, err = sess.SubmitToken(ctx, tok)
		if err != nil {
			return err
		}
	} else {
		if *feature < 0 {
			return &command.FieldError{Field: "feature", Value: fmt.Sprint(*feature), Err: command.ErrInvalidArgument}
		}
		receipt, err = sess.Submit(ctx, op, uint64(*feature))
		if err != nil {
			return err
		}
	}

	return printJSON(out, receipt)
}

func runEncode(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	fs.SetOutput(out)
	nonce := fs.Int64("nonce", 0, "Nonce (16 bits)")
	opName := fs.String("op", "", "Opcode name or number")
	feature := fs.Int64("feature", 0, "Feature selector (40 bits)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	op, err := command.ParseOpcode(*opName)
	if err != nil {
		return err
	}
	tok, err := command.EncodeInt(*nonce, int64(op), *feature)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, tok)
	return nil
}

func runDecode(args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("decode: expected exactly one token")
	}
	tok, err := command.ParseToken(args[0])
	if err != nil {
		return err
	}

	f := tok.Fields()
	fmt.Fprintln(out, f)
	if f.Opcode.IsAmbiguous() {
		fmt.Fprintf(out, "note: opcode %d cannot be told apart: %s\n", uint8(f.Opcode), strings.Join(f.Opcode.Names(), ", "))
	}
	return nil
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
