package commands

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tendril-dev/tendril/pkg/project"
	"github.com/tendril-dev/tendril/pkg/terraform"
)

func newWatchCommand() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch [module]",
		Short: "Re-check stack readiness on configuration changes",
		Long: `Watch a stack root and re-run the readiness check whenever its files
change. The check is read-only: the watcher never applies.

Events are debounced so one save burst triggers one check.`,
		Example: `  # Watch the project-root stack
  tendril watch

  # Watch a module's stack with a longer debounce
  tendril watch networking --debounce 2s`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadProject()
			if err != nil {
				return err
			}

			spec, err := resolveStack(cfg, args)
			if err != nil {
				return err
			}

			driver, cleanup, err := newDriver(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			return watchStack(cmd, driver, spec, debounce)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "delay before re-checking after a change")

	return cmd
}

// watchStack runs the status check once, then again after every debounced
// change under the stack root, until the context is cancelled.
func watchStack(cmd *cobra.Command, driver *terraform.Driver, spec *project.StackSpec, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(spec.Root); err != nil {
		return err
	}

	checkOnce(cmd, driver, spec)

	var timer *time.Timer
	pending := make(chan struct{}, 1)
	for {
		select {
		case <-cmd.Context().Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) == 0 {
				continue
			}
			// The driver rewrites the variable file on every check;
			// reacting to it would loop forever.
			if filepath.Base(event.Name) == terraform.VarFileName {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watch error")

		case <-pending:
			checkOnce(cmd, driver, spec)
		}
	}
}

// checkOnce runs one status check and logs the result without failing the
// watch loop.
func checkOnce(cmd *cobra.Command, driver *terraform.Driver, spec *project.StackSpec) {
	status, err := driver.Status(cmd.Context(), spec)
	if err != nil {
		log.Error().Err(err).Str("stack", spec.Name).Msg("Status check failed")
		return
	}
	log.Info().
		Str("stack", spec.Name).
		Bool("ready", status.Ready).
		Int("outputs", len(status.Outputs)).
		Msg("Stack status")
}
