package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/arloliu/go-kotel/boiler"
)

var (
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Print the current status of the boiler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mc, err := manualControlFromFlags(cmd.Flags())
			if err != nil {
				return err
			}

			return withSession(cmd, func(ctx context.Context, s *session) error {
				st, err := s.ctrl.Status(ctx, mc)
				if err != nil {
					return err
				}
				printStatus(st)

				return nil
			})
		},
	}
	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Print the operating counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				st, err := s.ctrl.Stats(ctx)
				if err != nil {
					return err
				}
				printStats(st)

				return nil
			})
		},
	}
	configCmd = &cobra.Command{
		Use:   "config [key...]",
		Short: "Print the configuration, or the given keys of it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				cfg, err := s.ctrl.ReadConfig(ctx)
				if err != nil {
					return err
				}
				keys := args
				if len(keys) == 0 {
					keys = cfg.Keys()
				}
				for _, k := range keys {
					fmt.Printf("%s=%s\n", k, cfg[k])
				}

				return nil
			})
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [key=value...]",
		Short: "Changes configuration values",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values := make(boiler.Config, len(args))
			for _, arg := range args {
				k, v, ok := strings.Cut(arg, "=")
				if !ok || k == "" {
					return fmt.Errorf("expected key=value, got %q", arg)
				}
				values[k] = v
			}

			return withSession(cmd, func(ctx context.Context, s *session) error {
				err := s.ctrl.SetConfig(ctx, values)
				var rejected *boiler.ConfigRejectedError
				if errors.As(err, &rejected) {
					return fmt.Errorf("the device refused %s=%s", rejected.Field, values[rejected.Field])
				}
				if err != nil {
					return err
				}
				fmt.Println("set successfully")

				return nil
			})
		},
	}
	fuelCmd = &cobra.Command{
		Use:   "fuel [kg]",
		Short: "Reports fuel added to the tray, negative for fuel taken out",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var f boiler.FuelChange
			f.Full, _ = cmd.Flags().GetBool("full")
			f.Absolute, _ = cmd.Flags().GetBool("absolute")
			f.Calibrate, _ = cmd.Flags().GetBool("calibrate")

			switch {
			case len(args) == 1:
				kg, err := strconv.ParseInt(args[0], 10, 16)
				if err != nil {
					return fmt.Errorf("kg must be a number: %w", err)
				}
				f.Kg = int16(kg)
			case !f.Full:
				return errors.New("kg is required unless --full is given")
			}

			return withSession(cmd, func(ctx context.Context, s *session) error {
				if _, err := s.ctrl.ReadConfig(ctx); err != nil {
					return err
				}
				if err := s.ctrl.SetFuel(ctx, f); err != nil {
					return err
				}
				fmt.Printf("tray holds %s kg\n", s.ctrl.Config()[boiler.KeyTrayFillKg])

				return nil
			})
		},
	}
	codeCmd = &cobra.Command{
		Use:   "code",
		Short: "Shows a new pairing code for another client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				code, err := s.ctrl.PairingCode(ctx)
				if err != nil {
					return err
				}
				fmt.Println(code)

				return nil
			})
		},
	}
	unpairCmd = &cobra.Command{
		Use:   "unpair",
		Short: "Invalidates the tokens of every other client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				if err := s.ctrl.Unpair(ctx); err != nil {
					return err
				}
				fmt.Println("unpaired successfully")

				return nil
			})
		},
	}
	logoutCmd = &cobra.Command{
		Use:   "logout",
		Short: "Forgets the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(_ context.Context, s *session) error {
				return s.ctrl.Logout()
			})
		},
	}
	ssidCmd = &cobra.Command{
		Use:   "ssid",
		Short: "Prints the WiFi network the device joins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				ssid, err := s.ctrl.ReadSSID(ctx)
				if err != nil {
					return err
				}
				fmt.Println(ssid)

				return nil
			})
		},
	}
	tasksCmd = &cobra.Command{
		Use:   "tasks",
		Short: "Lists the firmware tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				tasks, err := s.ctrl.Tasks(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("%-16s %10s %12s\n", "NAME", "RUN TIME", "SCHEDULED")
				for _, t := range tasks {
					fmt.Printf("%-16s %10d %12d\n", t.Name, t.RunTime, t.ScheduledTime)
				}

				return nil
			})
		},
	}
	rebootCmd = &cobra.Command{
		Use:   "reboot",
		Short: "Restarts the device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				return s.ctrl.Reboot(ctx)
			})
		},
	}
	clearStatsCmd = &cobra.Command{
		Use:   "clear-stats",
		Short: "Resets the operating counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				return s.ctrl.ClearStats(ctx)
			})
		},
	}
)

func init() {
	addManualControlFlags(statusCmd.Flags())

	fuelCmd.Flags().Bool("full", false, wrapString("The tray was filled up"))
	fuelCmd.Flags().Bool("absolute", false, wrapString("kg is the tray content, not a difference"))
	fuelCmd.Flags().Bool("calibrate", false, wrapString("Recalibrate the feeder from the consumption since the last change"))
}

func addManualControlFlags(fs *pflag.FlagSet) {
	fs.String("feeder", "", wrapString("Run the feeder for a few seconds (on) or stop it (off)"))
	fs.String("fan", "", wrapString("Run the fan for a few seconds (on) or stop it (off)"))
	fs.Int("fan-speed", -1, wrapString("Set the fan speed in percent"))
	fs.String("pump", "", wrapString("Force the pump on or release it (off)"))
}

func manualControlFromFlags(fs *pflag.FlagSet) (boiler.ManualControl, error) {
	mc := boiler.NoManualControl

	onOffFlag := func(name string, on uint8, dst *uint8) error {
		v, _ := fs.GetString(name)
		switch v {
		case "":
		case "on":
			*dst = on
		case "off":
			*dst = 0
		default:
			return fmt.Errorf("--%s must be on or off", name)
		}

		return nil
	}
	if err := onOffFlag("feeder", 3, &mc.FeederTimer); err != nil {
		return mc, err
	}
	if err := onOffFlag("fan", 3, &mc.FanTimer); err != nil {
		return mc, err
	}
	if err := onOffFlag("pump", 1, &mc.ForcePump); err != nil {
		return mc, err
	}

	if speed, _ := fs.GetInt("fan-speed"); speed >= 0 {
		if speed > 100 {
			return mc, errors.New("--fan-speed must be between 0 and 100")
		}
		mc.FanSpeed = uint8(speed)
	}

	return mc, nil
}

func printStatus(st *boiler.Status) {
	fmt.Printf("time:        %s\n", st.Time.Format("2006-01-02 15:04:05"))
	fmt.Printf("mode:        %s (%s)\n", st.Mode, st.AutoMode)
	fmt.Printf("output:      %s (±%.1f)\n", st.Output, st.OutputAmplitude)
	fmt.Printf("input:       %s (±%.1f)\n", st.Input, st.InputAmplitude)
	fmt.Printf("pump:        %s\n", onOff(st.Pump))
	fmt.Printf("feeder:      %s\n", onOff(st.Feeder))
	fmt.Printf("fan:         %d%%\n", st.Fan)
	tray := "closed"
	if st.TrayOpen {
		tray = "open"
	}
	fmt.Printf("tray:        %d kg, %s\n", st.TrayFillKg, tray)
	if st.FeederOverheat {
		fmt.Println("warning:     feeder overheated")
	}
	fmt.Printf("wifi:        %d dBm\n", st.RSSI)
}

func printStats(st *boiler.Stats) {
	fmt.Printf("uptime:            %s\n", st.Uptime)
	fmt.Printf("active time:       %ds\n", st.ActiveTime)
	fmt.Printf("full power:        %ds (%d times)\n", st.FullPowerTime, st.FullPowerCount)
	fmt.Printf("low power:         %ds (%d times)\n", st.LowPowerTime, st.LowPowerCount)
	fmt.Printf("cooling:           %ds (%d times)\n", st.CoolingTime, st.CoolCount)
	fmt.Printf("overheat:          %ds (%d times)\n", st.OverheatTime, st.OverheatCount)
	fmt.Printf("fan:               %ds (%d starts)\n", st.FanTime, st.FanStartCount)
	fmt.Printf("pump:              %ds (%d starts)\n", st.PumpTime, st.PumpStartCount)
	fmt.Printf("feeder:            %ds (%d starts)\n", st.FeederTime, st.FeederStartCount)
	fmt.Printf("feeder per kg:     %ds\n", st.Feeder1KgTime)
	fmt.Printf("consumed:          %d kg (%d kg total)\n", st.ConsumedKg, st.ConsumedKgTotal)
	fmt.Printf("sensor failures:   %d\n", st.TempReadFailureCount)
	fmt.Printf("eeprom errors:     %d\n", st.EEPROMErrors)
}
