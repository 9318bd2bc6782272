package commands

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/bukhantcev/stavfitness26/pkg/smm/store"
)

var hhmmRe = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// newScheduleCmd creates the `smmbot schedule` command to inspect or set
// the daily autopost time from the terminal.
func newScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule [HH:MM|off]",
		Short: "Show or set the daily autopost time",
		Long: `Without arguments, shows the current autopost setting. With HH:MM,
arms the daily publish at that time; "off" disables it. A running daemon
picks the change up on restart; in chat, /schedule applies immediately.

Examples:
  smmbot schedule
  smmbot schedule 10:00
  smmbot schedule off`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSchedule,
	}
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	if len(args) == 0 {
		current, err := st.DailyTime()
		if err != nil {
			return fmt.Errorf("reading schedule: %w", err)
		}
		if current == "" {
			fmt.Println("Autopost is off.")
		} else {
			fmt.Printf("Autopost daily at %s.\n", current)
		}
		return nil
	}

	arg := args[0]
	if arg == "off" {
		if err := st.SetDailyTime(""); err != nil {
			return fmt.Errorf("disabling autopost: %w", err)
		}
		fmt.Println("Autopost is off.")
		return nil
	}

	if !hhmmRe.MatchString(arg) {
		return fmt.Errorf("invalid time %q, expected HH:MM or off", arg)
	}
	if err := st.SetDailyTime(arg); err != nil {
		return fmt.Errorf("setting autopost time: %w", err)
	}
	fmt.Printf("Autopost daily at %s.\n", arg)
	return nil
}
