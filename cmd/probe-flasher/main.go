package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/KercyDing/probe-flasher/internal/flasher"
	"github.com/KercyDing/probe-flasher/internal/serial"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	portFlag     string
	baudFlag     int
	bootModeFlag string
	hexFlag      string
	noResetFlag  bool
	verifyFlag   bool
)

// flashGuard rejects overlapping flash calls; the CLI runs one at a time,
// but the guard keeps the entry point safe for embedders.
var flashGuard flasher.Guard

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})

	rootCmd := &cobra.Command{
		Use:   "probe-flasher",
		Short: "Flash firmware to STM32 devices over the factory UART bootloader",
		Long: `Probe Flasher programs STM32 microcontrollers through the ROM UART
bootloader (ST AN3155) on a host serial port.

It forces the target into bootloader mode over the DTR/RTS control lines,
autodetects the baud rate, mass-erases the flash and writes an Intel HEX
firmware image.`,
	}

	// Flash command
	flashCmd := &cobra.Command{
		Use:   "flash",
		Short: "Flash a .hex file to the device",
		Long: `Flash an Intel HEX firmware image through the UART bootloader.

The boot-mode flag selects the DTR/RTS pulse pattern used to pull BOOT0
high while resetting the target; use "none" when the pins are jumpered
by hand.`,
		RunE: runFlash,
	}
	flashCmd.Flags().StringVarP(&portFlag, "port", "p", "", "Serial port name")
	flashCmd.Flags().StringVarP(&hexFlag, "hex", "f", "", "Path to the .hex file")
	flashCmd.Flags().IntVarP(&baudFlag, "baud", "b", 115200, "Baud rate")
	flashCmd.Flags().StringVarP(&bootModeFlag, "boot-mode", "m", "dtr-low-rts-high", "Boot entry mode")
	flashCmd.Flags().BoolVar(&noResetFlag, "no-reset", false, "Skip the automatic reset after flashing")
	flashCmd.Flags().BoolVar(&verifyFlag, "verify", false, "Verify after flashing (reserved)")
	flashCmd.MarkFlagRequired("port")
	flashCmd.MarkFlagRequired("hex")

	// Identify command
	identifyCmd := &cobra.Command{
		Use:   "identify",
		Short: "Identify the bootloader on a port",
		Long:  "Enter the bootloader and report its version, command set and product ID.",
		RunE:  runIdentify,
	}
	identifyCmd.Flags().StringVarP(&portFlag, "port", "p", "", "Serial port name")
	identifyCmd.Flags().IntVarP(&baudFlag, "baud", "b", 115200, "Baud rate")
	identifyCmd.Flags().StringVarP(&bootModeFlag, "boot-mode", "m", "dtr-low-rts-high", "Boot entry mode")
	identifyCmd.MarkFlagRequired("port")

	// Version command
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("probe-flasher %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}

	// List command
	listCmd := &cobra.Command{
		Use:   "list-ports",
		Short: "List available serial ports",
		RunE:  runListPorts,
	}

	rootCmd.AddCommand(flashCmd, identifyCmd, versionCmd, listCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// cliLogger renders core log lines through logrus and PROGRESS lines
// through a progress bar.
type cliLogger struct {
	bar *progressbar.ProgressBar
}

func (l *cliLogger) Line(level, msg string) {
	if p, ok := flasher.ParseProgress(msg); ok {
		if l.bar == nil {
			l.bar = progressbar.NewOptions(p.Total,
				progressbar.OptionSetDescription(p.Phase),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowBytes(true),
				progressbar.OptionThrottle(100),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}
		l.bar.Set(p.Done)
		return
	}

	switch level {
	case flasher.LevelWarn:
		logrus.Warn(msg)
	case flasher.LevelError:
		logrus.Error(msg)
	default:
		logrus.Info(msg)
	}
}

func (l *cliLogger) finish() {
	if l.bar != nil {
		l.bar.Finish()
	}
}

func buildOptions() (flasher.Options, error) {
	mode, err := serial.ParseBootMode(bootModeFlag)
	if err != nil {
		return flasher.Options{}, err
	}

	opts := flasher.DefaultOptions()
	opts.BaudRate = baudFlag
	opts.BootMode = mode
	return opts, nil
}

func runFlash(cmd *cobra.Command, args []string) error {
	opts, err := buildOptions()
	if err != nil {
		return err
	}
	opts.ResetAfter = !noResetFlag
	opts.Verify = verifyFlag

	if !flashGuard.TryAcquire() {
		return fmt.Errorf("already flashing")
	}
	defer flashGuard.Release()

	log := &cliLogger{}
	defer log.finish()

	if err := flasher.FlashHex(portFlag, hexFlag, opts, log); err != nil {
		return err
	}

	fmt.Println("Flash completed successfully!")
	return nil
}

func runIdentify(cmd *cobra.Command, args []string) error {
	opts, err := buildOptions()
	if err != nil {
		return err
	}

	result := flasher.Identify(portFlag, opts, &cliLogger{})
	if !result.OK {
		return fmt.Errorf("identify failed: %s", result.Error)
	}

	fmt.Println("Identify OK")
	if result.BootloaderVersion != nil {
		fmt.Printf("  Bootloader version: 0x%02X\n", *result.BootloaderVersion)
	}
	if result.ProductID != nil {
		fmt.Printf("  Product ID: 0x%04X\n", *result.ProductID)
	}
	fmt.Printf("  Supported commands: % 02X\n", result.SupportedCommands)
	return nil
}

func runListPorts(cmd *cobra.Command, args []string) error {
	ports, err := serial.ListPorts()
	if err != nil {
		return err
	}

	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}

	fmt.Println("Available serial ports:")
	for _, p := range ports {
		marker := " "
		if p.VID != nil {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, p.Label)
	}

	return nil
}
