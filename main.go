package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/saworbit/cygbridge/internal/metrics"
	"github.com/saworbit/cygbridge/internal/version"
	"github.com/saworbit/cygbridge/pkg/config"
	"github.com/saworbit/cygbridge/pkg/cygpath"
	"github.com/saworbit/cygbridge/pkg/linkstore"
	"github.com/saworbit/cygbridge/pkg/scanner"
	"github.com/saworbit/cygbridge/pkg/watcher"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"k8s.io/klog/v2"
)

func main() {
	root := newRootCmd(cygpath.New)
	err := root.Execute()
	if err != nil {
		klog.ErrorS(err, "Command failed")
	}
	klog.Flush()
	if err != nil {
		os.Exit(1)
	}
}

// translatorFactory builds the translator once the configuration is known
type translatorFactory func(*config.TranslatorConfig) cygpath.Translator

// app carries what every subcommand shares
type app struct {
	v          *viper.Viper
	cfgFile    string
	cfg        *config.Config
	translator cygpath.Translator
	factory    translatorFactory
}

func newRootCmd(factory translatorFactory) *cobra.Command {
	a := &app{v: viper.New(), factory: factory}

	root := &cobra.Command{
		Use:           "cygbridge",
		Short:         "cygbridge - Cygwin path translation and symlink resolution",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	klogFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(klogFlags)
	root.PersistentFlags().AddGoFlagSet(klogFlags)

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Path to a config file (yaml, json or toml)")
	root.PersistentFlags().String("metrics-addr", "", "Address for the Prometheus /metrics endpoint (watch only)")
	_ = a.v.BindPFlag("metrics.addr", root.PersistentFlags().Lookup("metrics-addr"))

	root.AddCommand(
		newStatusCmd(a),
		newConvertCmd(a),
		newDerefCmd(a),
		newScanCmd(a),
		newWatchCmd(a),
		newLinksCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	if f := cmd.Flags().Lookup("state-dir"); f != nil {
		if err := a.v.BindPFlag("store.state_dir", f); err != nil {
			return err
		}
	}

	cfg, err := config.LoadWith(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	metrics.SetAgentInfo(version.Version)
	a.translator = a.factory(&cfg.Translator)
	return nil
}

// openStore opens the link store when a state dir is configured. It returns nil otherwise.
func (a *app) openStore(readOnly bool) (*linkstore.Store, error) {
	if a.cfg.Store.StateDir == "" {
		return nil, nil
	}
	return linkstore.Open(a.cfg.Store.StateDir, readOnly)
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether the Cygwin runtime is loaded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			t := a.translator

			if !t.Active() {
				fmt.Fprintln(out, "runtime: inactive")
				fmt.Fprintf(out, "tried: %v\n", a.cfg.Translator.Libraries)
				return nil
			}

			fmt.Fprintln(out, "runtime: active")
			fmt.Fprintf(out, "library: %s\n", t.Library())
			fmt.Fprintf(out, "entry point: %s\n", a.cfg.Translator.EntryPoint)
			if root, err := t.ToNative("/"); err == nil {
				fmt.Fprintf(out, "root: %s\n", root)
			}
			return nil
		},
	}
}

func newConvertCmd(a *app) *cobra.Command {
	var to string
	var legacy bool

	cmd := &cobra.Command{
		Use:   "convert --to native|posix <path>...",
		Short: "Convert paths between the POSIX and native namespaces",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := parseDirection(to)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, p := range args {
				if legacy {
					fmt.Fprintln(out, cygpath.ConvertForDisplay(a.translator, dir, p))
					continue
				}

				converted, err := a.translator.Convert(dir, p)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, converted)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "native", "Target namespace: native or posix")
	cmd.Flags().BoolVar(&legacy, "legacy", false, "Print the invalid-path sentinel instead of failing")
	return cmd
}

func parseDirection(to string) (cygpath.Direction, error) {
	switch to {
	case "native", "windows", "win":
		return cygpath.PosixToNative, nil
	case "posix", "unix":
		return cygpath.NativeToPosix, nil
	default:
		return 0, fmt.Errorf("invalid --to value %q (want native or posix)", to)
	}
}

func newDerefCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "deref <path>...",
		Short: "Resolve compatibility symlinks to their native targets",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(false)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			for _, p := range args {
				if !force && !a.translator.LooksLikeSymlink(p) {
					fmt.Fprintf(out, "%s: not a symlink\n", p)
					continue
				}

				finding := scanner.Finding{Path: p}
				if a.translator.Active() {
					target, err := a.translator.Dereference(p)
					if err != nil {
						return err
					}
					finding.Target = target
				}
				printFinding(out, finding)

				if err := a.record(store, finding, linkstore.SourceDeref); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Dereference even when the path does not look like a symlink")
	cmd.Flags().String("state-dir", "", "Record results in the link store at this directory")
	return cmd
}

func newScanCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "Find and resolve compatibility symlinks under a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			store, err := a.openStore(false)
			if err != nil {
				return err
			}
			defer store.Close()

			if store != nil {
				if err := store.MarkScan(time.Now()); err != nil {
					return fmt.Errorf("mark scan: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			count := 0
			err = scanner.Scan(cmd.Context(), root, a.translator, func(f scanner.Finding) error {
				count++
				printFinding(out, f)
				return a.record(store, f, linkstore.SourceScan)
			})
			if err != nil {
				return err
			}

			klog.InfoS("Scan complete", "root", root, "links", count)
			return nil
		},
	}

	cmd.Flags().String("state-dir", "", "Record findings in the link store at this directory")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Record compatibility symlinks as they are created",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			store, err := a.openStore(false)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			if addr := a.cfg.Metrics.Addr; addr != "" {
				go func() {
					if err := metrics.Serve(ctx, addr); err != nil {
						klog.ErrorS(err, "Metrics endpoint stopped", "addr", addr)
					}
				}()
			}

			out := cmd.OutOrStdout()
			return watcher.Watch(ctx, root, a.translator, a.cfg.Watch.SettleDelay, func(f scanner.Finding) error {
				printFinding(out, f)
				return a.record(store, f, linkstore.SourceWatch)
			})
		},
	}

	cmd.Flags().String("state-dir", "", "Record findings in the link store at this directory")
	return cmd
}

func newLinksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links",
		Short: "List links recorded in the link store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Store.StateDir == "" {
				return fmt.Errorf("state-dir is required")
			}

			store, err := a.openStore(true)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if last := store.LastScan(); !last.IsZero() {
				fmt.Fprintf(out, "last scan: %s\n", last.UTC().Format(time.RFC3339))
			}
			for _, rec := range records {
				switch {
				case rec.Error != "":
					fmt.Fprintf(out, "%s -> ? (%s) [%s]\n", rec.Path, rec.Error, rec.Source)
				case rec.Target == "":
					fmt.Fprintf(out, "%s -> ? [%s]\n", rec.Path, rec.Source)
				default:
					fmt.Fprintf(out, "%s -> %s [%s]\n", rec.Path, rec.Target, rec.Source)
				}
			}
			return nil
		},
	}

	cmd.Flags().String("state-dir", "", "Directory where the link store lives")
	return cmd
}

// record persists f when a store is open
func (a *app) record(store *linkstore.Store, f scanner.Finding, source string) error {
	if store == nil {
		return nil
	}

	rec := linkstore.Record{Path: f.Path, Target: f.Target, Source: source}
	if f.Err != nil {
		rec.Error = f.Err.Error()
	}
	if posix, err := a.translator.ToPosix(f.Path); err == nil {
		rec.PosixPath = posix
	}

	if err := store.Put(rec); err != nil {
		return err
	}
	metrics.ObserveLinkRecorded(source)
	return nil
}

func printFinding(out io.Writer, f scanner.Finding) {
	switch {
	case f.Resolved():
		fmt.Fprintf(out, "%s -> %s\n", f.Path, f.Target)
	case f.Err != nil && errors.Is(f.Err, cygpath.ErrNotRepresentable):
		fmt.Fprintf(out, "%s -> ? (not representable)\n", f.Path)
	case f.Err != nil:
		fmt.Fprintf(out, "%s -> ? (%v)\n", f.Path, f.Err)
	default:
		fmt.Fprintf(out, "%s -> ?\n", f.Path)
	}
}
