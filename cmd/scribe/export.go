package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	transcriptDomain "github.com/reshetovitsme/discord-scribe/internal/modules/transcript/domain"
	transcriptService "github.com/reshetovitsme/discord-scribe/internal/modules/transcript/service"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

type exportOptions struct {
	usernames  bool
	timestamps bool
	reactions  bool
	flags      string
	filename   string
	out        string
	timeout    time.Duration
}

func exportCmd() *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export <channel-id>",
		Short: "Export a channel transcript to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			injector, cfg, err := bootstrap()
			if err != nil {
				return err
			}
			defer shutdown(injector)

			req, err := opts.request(args[0])
			if err != nil {
				return err
			}

			timeout := opts.timeout
			if timeout <= 0 {
				timeout = cfg.CommandTimeout
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			svc := do.MustInvoke[*transcriptService.Service](injector)
			transcript, err := svc.BuildTranscript(ctx, req)
			if err != nil {
				return err
			}

			path, err := writeTranscript(transcript, opts.out, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			slog.Info("Transcript exported", "channel_id", req.ChannelID, "messages", transcript.MessageCount, "path", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&opts.usernames, "usernames", "u", false, "prefix messages with the author")
	cmd.Flags().BoolVarP(&opts.timestamps, "timestamps", "t", false, "prefix messages with the UTC send time")
	cmd.Flags().BoolVarP(&opts.reactions, "reactions", "r", false, "append reaction emojis")
	cmd.Flags().StringVar(&opts.flags, "flags", "", "formatting flags as a list, e.g. usernames,timestamps")
	cmd.Flags().StringVarP(&opts.filename, "filename", "f", "", "custom file name (default: channel name)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", ".", "output directory or file, - for stdout")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "export timeout (default: command_timeout)")
	return cmd
}

// request merges the boolean flags and the --flags list into one request
func (o exportOptions) request(channelID string) (transcriptDomain.Request, error) {
	options, err := transcriptDomain.ParseOptions(o.flags)
	if err != nil {
		return transcriptDomain.Request{}, err
	}
	if o.usernames {
		options |= transcriptDomain.IncludeUsernames
	}
	if o.timestamps {
		options |= transcriptDomain.IncludeTimestamps
	}
	if o.reactions {
		options |= transcriptDomain.IncludeReactions
	}

	req := transcriptDomain.Request{
		ChannelID: channelID,
		Filename:  o.filename,
		Options:   options,
	}
	return req, req.Validate()
}

// writeTranscript writes to stdout for "-", into out when it is a directory,
// or to out itself otherwise. It returns where the transcript went.
func writeTranscript(t *transcriptDomain.Transcript, out string, stdout io.Writer) (string, error) {
	if out == "-" {
		_, err := t.WriteTo(stdout)
		return "stdout", err
	}

	path := out
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		path = filepath.Join(out, t.Filename)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", oops.With("path", path).Wrap(err)
	}
	defer f.Close()

	if _, err := t.WriteTo(f); err != nil {
		return "", oops.With("path", path).Wrap(err)
	}
	return path, f.Close()
}
