package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"furiganafmt/align"
	"furiganafmt/config"
	"furiganafmt/dictionary"
	"furiganafmt/kanji"
	"furiganafmt/logger"
	"furiganafmt/tokenize"
)

var (
	configPath string
	cfg        *config.Config
	log        *zap.SugaredLogger
)

var rootCmd = &cobra.Command{
	Use:   "furigana",
	Short: "Attach readings to kanji in scraped dictionary headwords",
	Long: `furigana rewrites dictionary records of the form 言い方(いいかた) into
言(い)い方(かた), pairing each kanji run with its part of the reading.
Headwords that cannot be aligned are converted with the kagome analyzer instead.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if err = loadConfig(cmd.Flags()); err != nil {
			return err
		}
		log, err = logger.New(logger.Options{JSON: cfg.Log.JSON, Verbose: cfg.Log.Verbose})
		if err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Rewrite every matching dictionary file in the dict dir",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		p := dictionary.NewProcessor(engine, dictionary.Options{
			DictDir:    cfg.DictDir,
			OutputDir:  cfg.OutputDir,
			Workers:    cfg.Workers,
			ReviewFile: cfg.Review.File,
		}, log.Named("dictionary"))

		sum, err := p.Run(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "files=%d skipped=%d records=%d aligned=%d fallbacks=%d unreachable=%d errors=%d\n",
			sum.Files, sum.Skipped, sum.Records, sum.Aligned, sum.Fallbacks, sum.Unreachable, sum.Errors)
		return nil
	},
}

var alignCmd = &cobra.Command{
	Use:   "align <annotation>...",
	Short: "Align annotations given on the command line",
	Example: `  furigana align '言い方(いいかた)'
  furigana align -v '食べる（たべる）' 'test(EN gloss)'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		raws := make([]string, len(args))
		for i, a := range args {
			raws[i] = dictionary.NormalizeAnnotation(a)
		}
		results, err := dictionary.AlignAll(cmd.Context(), engine, raws, cfg.Workers)
		if err != nil {
			return err
		}
		for _, res := range results {
			if cfg.Log.Verbose {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", res.Text, res.Outcome)
				continue
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Text)
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (default ./"+config.DefaultFile+" when present)")
	pf.Bool("json-log", false, "emit JSON logs")
	pf.BoolP("verbose", "v", false, "debug logging and outcome column for align")
	pf.Int("workers", 0, "records aligned concurrently")

	rf := runCmd.Flags()
	rf.String("dict-dir", "", "directory holding the scraped dictionaries")
	rf.String("output-dir", "", "directory the rewritten dictionaries are written to")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(alignCmd)
}

// flag name -> config key
var flagKeys = map[string]string{
	"json-log":   "log.json",
	"verbose":    "log.verbose",
	"workers":    "workers",
	"dict-dir":   "dict_dir",
	"output-dir": "output_dir",
}

// loadConfig merges defaults, config file, env and flags. Flags only win when set.
func loadConfig(flags *pflag.FlagSet) error {
	v, err := config.NewViper(configPath)
	if err != nil {
		return err
	}
	if err := bindFlags(v, flags); err != nil {
		return err
	}
	cfg, err = config.LoadWithViper(v)
	return err
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

func newEngine() (*align.Engine, error) {
	conv, err := tokenize.New(cfg.Tokenizer.Dictionary, log.Named("tokenize"))
	if err != nil {
		return nil, err
	}
	fallback := tokenize.WithRateLimit(conv, cfg.Fallback.RatePerSecond, cfg.Fallback.Burst)
	return align.New(kanji.Classifier{}, fallback, log.Named("align")), nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
