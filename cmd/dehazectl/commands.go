package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/UnendingLoop/Dehazer/internal/config"
	"github.com/UnendingLoop/Dehazer/internal/model"
	"github.com/UnendingLoop/Dehazer/internal/service"
	"github.com/UnendingLoop/Dehazer/internal/storage"
	"github.com/UnendingLoop/Dehazer/internal/workflow"
	"github.com/spf13/cobra"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

var errNotProcessed = errors.New("image was not processed")

var enqueueRetry = retry.Strategy{
	Attempts: 3,
	Delay:    time.Second,
	Backoff:  2,
}

type cliOptions struct {
	envFile  string
	endpoint string
	timeout  time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "dehazectl",
		Short:         "Dehaze demo client",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `Uploads a hazy image (or picks a stored sample), calls the dehaze endpoint
and prints the JSON result.

Examples:
  dehazectl upload ./foggy.jpg
  dehazectl sample /images/hazy_7.jpg
  dehazectl samples
  dehazectl provision
  dehazectl seed ./samples
  dehazectl enqueue /images/hazy_1.jpg /images/hazy_2.jpg`,
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env", ".env", "env-file to read config from (skipped if missing)")
	root.PersistentFlags().StringVar(&opts.endpoint, "endpoint", "", "dehaze endpoint URL (overrides DEHAZE_ENDPOINT)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "endpoint call timeout")

	root.AddCommand(
		newUploadCmd(opts),
		newSampleCmd(opts),
		newSamplesCmd(opts),
		newProvisionCmd(opts),
		newSeedCmd(opts),
		newEnqueueCmd(opts),
	)
	return root
}

func newUploadCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a local image and dehaze it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %q: %w", args[0], err)
			}
			store, err := storage.NewObjectStore(cmd.Context(), cfg.Storage)
			if err != nil {
				return err
			}

			wf := workflow.NewService(store, workflow.NewHTTPInvoker(opts.endpointURL(cfg), opts.timeout))
			res := wf.SubmitUpload(cmd.Context(), workflow.UploadFile{
				Name:        filepath.Base(args[0]),
				ContentType: model.ContentTypeByName(args[0]),
				Data:        data,
			})
			return printResult(cmd.OutOrStdout(), res)
		},
	}
}

func newSampleCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sample <path>",
		Short: "Dehaze one of the stored samples, e.g. /images/hazy_7.jpg",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			// загрузки нет - хранилище клиенту не нужно
			wf := workflow.NewService(nil, workflow.NewHTTPInvoker(opts.endpointURL(cfg), opts.timeout))
			return printResult(cmd.OutOrStdout(), wf.SubmitSample(cmd.Context(), args[0]))
		},
	}
}

func newSamplesCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "samples",
		Short: "List sample image paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			for _, p := range model.SampleImages(cfg.SampleCount) {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

func newProvisionCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "provision",
		Short: "Create the public bucket if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			store, err := storage.NewObjectStore(cmd.Context(), cfg.Storage)
			if err != nil {
				return err
			}
			if err := service.NewBucketProvisioner(store, store.Bucket()).Provision(cmd.Context()); err != nil {
				return err
			}
			zlog.Logger.Info().Str("bucket", store.Bucket()).Msg("Bucket is ready")
			return nil
		},
	}
}

func newSeedCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <dir>",
		Short: "Provision the bucket and upload hazy_* sample images from dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			store, err := storage.NewObjectStore(cmd.Context(), cfg.Storage)
			if err != nil {
				return err
			}
			if err := service.NewBucketProvisioner(store, store.Bucket()).Provision(cmd.Context()); err != nil {
				return err
			}

			n, err := workflow.Seed(cmd.Context(), store, args[0])
			zlog.Logger.Info().Int("uploaded", n).Str("bucket", store.Bucket()).Msg("Seeding finished")
			return err
		},
	}
}

func newEnqueueCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue <path>...",
		Short: "Queue images for the async dehaze worker",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.Kafka.Broker == "" {
				return errors.New("KAFKA_BROKER is not set")
			}

			prod := wbfkafka.NewProducer([]string{cfg.Kafka.Broker}, cfg.Kafka.RequestTopic)
			defer func() {
				if err := prod.Close(); err != nil {
					zlog.Logger.Warn().Err(err).Msg("Failed to close Kafka-producer")
				}
			}()

			for _, p := range args {
				payload, err := json.Marshal(model.DehazeRequest{ImagePath: p})
				if err != nil {
					return err
				}
				if err := prod.SendWithRetry(cmd.Context(), enqueueRetry, []byte(p), payload); err != nil {
					return fmt.Errorf("enqueue %q: %w", p, err)
				}
				zlog.Logger.Info().Str("imagePath", p).Msg("Queued")
			}
			return nil
		},
	}
}

func (o *cliOptions) load() (*config.Config, error) {
	var files []string
	if _, err := os.Stat(o.envFile); err == nil {
		files = append(files, o.envFile)
	}

	cfg, err := config.Load(files...)
	if err != nil {
		return nil, err
	}
	if err := zlog.SetLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to set log level: %w", err)
	}
	return cfg, nil
}

func (o *cliOptions) endpointURL(cfg *config.Config) string {
	if o.endpoint != "" {
		return o.endpoint
	}
	return cfg.DehazeEndpoint
}

func printResult(w io.Writer, res *model.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("%w: %s", errNotProcessed, res.Error)
	}
	return nil
}
